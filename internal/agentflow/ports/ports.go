// Package ports defines the contracts the canvas core needs from its
// remote collaborators. Services depend on these interfaces rather than on
// a concrete HTTP client or store.
package ports

import (
	"context"

	"github.com/soochol/agentflow/internal/agentflow"
)

// Executor runs a workflow on the execution service. It either returns the
// service response (which may carry success=false) or an error for a
// transport or non-2xx failure.
type Executor interface {
	Execute(ctx context.Context, req *agentflow.ExecutionRequest) (*agentflow.ExecutionResult, error)
}

// DocumentStore persists workflow documents. The session credential is
// carried by ctx (see package auth).
type DocumentStore interface {
	Create(ctx context.Context, doc *agentflow.Document) (*agentflow.Document, error)
	Get(ctx context.Context, id string) (*agentflow.Document, error)
	List(ctx context.Context) ([]*agentflow.Document, error)
	Delete(ctx context.Context, id string) error
}
