package repository

import (
	"context"
	"log/slog"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/auth"
	"github.com/soochol/agentflow/internal/db"
)

// documentDB is the subset of *db.DB the persistent repository uses.
type documentDB interface {
	PutDocument(ctx context.Context, doc *agentflow.Document) error
	GetDocument(ctx context.Context, userID, id string) (*agentflow.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]*agentflow.Document, error)
	DeleteDocument(ctx context.Context, userID, id string) error
}

var _ documentDB = (*db.DB)(nil)

// PersistentRepository wraps a MemoryRepository with a PostgreSQL backend.
// Writes go to both stores (DB failure is logged but non-fatal).
// Reads try memory first, falling back to the database.
type PersistentRepository struct {
	mem *MemoryRepository
	db  documentDB
}

var _ WorkflowRepository = (*PersistentRepository)(nil)

// NewPersistent creates a repository backed by both memory and PostgreSQL.
func NewPersistent(mem *MemoryRepository, database *db.DB) *PersistentRepository {
	return &PersistentRepository{mem: mem, db: database}
}

func (r *PersistentRepository) Create(ctx context.Context, doc *agentflow.Document) (*agentflow.Document, error) {
	stored, err := r.mem.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := r.db.PutDocument(ctx, stored); err != nil {
		slog.Warn("db create document failed, in-memory only", "id", stored.ID, "err", err)
	}
	return stored, nil
}

func (r *PersistentRepository) Get(ctx context.Context, id string) (*agentflow.Document, error) {
	doc, err := r.mem.Get(ctx, id)
	if err == nil {
		return doc, nil
	}

	row, dbErr := r.db.GetDocument(ctx, auth.FromContext(ctx).UserID, id)
	if dbErr != nil {
		return nil, err
	}

	r.mem.put(ctx, row)
	return row, nil
}

func (r *PersistentRepository) List(ctx context.Context) ([]*agentflow.Document, error) {
	rows, err := r.db.ListDocuments(ctx, auth.FromContext(ctx).UserID)
	if err == nil {
		return rows, nil
	}
	slog.Warn("db list documents failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx)
}

func (r *PersistentRepository) Delete(ctx context.Context, id string) error {
	memErr := r.mem.Delete(ctx, id)
	dbErr := r.db.DeleteDocument(ctx, auth.FromContext(ctx).UserID, id)
	if dbErr != nil && memErr == nil {
		slog.Warn("db delete document failed", "id", id, "err", dbErr)
	}
	if memErr != nil && dbErr != nil {
		return memErr
	}
	return nil
}
