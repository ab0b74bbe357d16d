package repository

import (
	"errors"
	"testing"
)

func TestRedisRepository(t *testing.T) {
	repo, err := NewRedis(RedisConfig{Addr: "localhost:6379", DB: 15})
	if err != nil {
		t.Skip("redis not available:", err)
	}
	defer repo.Close()

	ctx := userCtx("redis-test-user")

	stored, err := repo.Create(ctx, sampleDoc("redis doc"))
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Delete(ctx, stored.ID)

	got, err := repo.Get(ctx, stored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "redis doc" || got.UserID != "redis-test-user" {
		t.Errorf("unexpected document: %+v", got)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, d := range list {
		if d.ID == stored.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s in list", stored.ID)
	}

	if _, err := repo.Get(userCtx("someone-else"), stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}

	if err := repo.Delete(ctx, stored.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
