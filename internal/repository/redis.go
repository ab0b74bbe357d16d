package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/auth"
)

// RedisConfig selects the Redis instance documents are stored in.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// RedisRepository stores documents in Redis.
//
// Keys:
//
//	workflow:{id}            JSON document
//	user:{user_id}:workflows set of document ids
type RedisRepository struct {
	client *redis.Client
	now    func() time.Time
}

var _ WorkflowRepository = (*RedisRepository)(nil)

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(cfg RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisRepository(client), nil
}

func newRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

func workflowKey(id string) string { return fmt.Sprintf("workflow:%s", id) }

func userIndexKey(userID string) string { return fmt.Sprintf("user:%s:workflows", userID) }

func (r *RedisRepository) Create(ctx context.Context, doc *agentflow.Document) (*agentflow.Document, error) {
	stored := stamp(ctx, doc, r.now())
	data, err := encodeDocument(stored)
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, workflowKey(stored.ID), data, 0)
	pipe.SAdd(ctx, userIndexKey(stored.UserID), stored.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return stored, nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*agentflow.Document, error) {
	data, err := r.client.Get(ctx, workflowKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, doc) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// List returns the caller's documents, most recently updated first. Index
// entries whose document has gone are skipped.
func (r *RedisRepository) List(ctx context.Context) ([]*agentflow.Document, error) {
	ids, err := r.client.SMembers(ctx, userIndexKey(auth.FromContext(ctx).UserID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(ids) == 0 {
		return []*agentflow.Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = workflowKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]*agentflow.Document, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		doc, err := decodeDocument([]byte(s))
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, workflowKey(id))
	pipe.SRem(ctx, userIndexKey(doc.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
