package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soochol/agentflow/internal/agentflow"
	memstore "github.com/soochol/agentflow/internal/repository/memory"
)

// MemoryRepository is a thread-safe in-memory WorkflowRepository.
type MemoryRepository struct {
	store *memstore.Store[*agentflow.Document]
	now   func() time.Time
}

var _ WorkflowRepository = (*MemoryRepository)(nil)

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		store: memstore.New(func(d *agentflow.Document) string { return d.ID }, cloneDocument),
		now:   time.Now,
	}
}

// Create stores doc, assigning an id and timestamps, and returns the
// stored copy.
func (r *MemoryRepository) Create(ctx context.Context, doc *agentflow.Document) (*agentflow.Document, error) {
	stored := stamp(ctx, doc, r.now())
	if err := r.store.Set(ctx, stored); err != nil {
		return nil, err
	}
	return cloneDocument(stored), nil
}

// put stores doc exactly as given; the persistent repository uses it to
// cache rows read from the database.
func (r *MemoryRepository) put(ctx context.Context, doc *agentflow.Document) {
	_ = r.store.Set(ctx, doc)
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*agentflow.Document, error) {
	doc, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) || (err == nil && !visible(ctx, doc)) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, err
}

// List returns the caller's documents, most recently updated first.
func (r *MemoryRepository) List(ctx context.Context) ([]*agentflow.Document, error) {
	return r.store.Select(ctx,
		func(d *agentflow.Document) bool { return visible(ctx, d) },
		func(a, b *agentflow.Document) bool { return a.UpdatedAt.After(b.UpdatedAt) },
	), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	_ = r.store.Delete(ctx, id)
	return nil
}
