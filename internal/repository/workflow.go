// Package repository stores workflow documents for the persistence
// adapter: in memory, in PostgreSQL behind a memory cache, or in Redis.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
	"github.com/soochol/agentflow/internal/auth"
)

// ErrNotFound is returned when a requested workflow does not exist.
var ErrNotFound = agentflow.ErrNotFound

// WorkflowRepository abstracts document persistence so callers don't
// need to know whether storage is in-memory, PostgreSQL, Redis or the
// remote persistence service.
type WorkflowRepository = ports.DocumentStore

func encodeDocument(doc *agentflow.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) (*agentflow.Document, error) {
	var doc agentflow.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

func cloneDocument(doc *agentflow.Document) *agentflow.Document {
	c := *doc
	if doc.Agents != nil {
		c.Agents = make([]agentflow.DocumentAgent, len(doc.Agents))
		for i, a := range doc.Agents {
			if a.Position != nil {
				p := *a.Position
				a.Position = &p
			}
			c.Agents[i] = a
		}
	}
	if doc.Connections != nil {
		c.Connections = append([]agentflow.Connection(nil), doc.Connections...)
	}
	if doc.ExecutionResults != nil {
		c.ExecutionResults = append([]agentflow.Output(nil), doc.ExecutionResults...)
	}
	return &c
}

// stamp fills in the fields a store owns: id, owner and timestamps.
func stamp(ctx context.Context, doc *agentflow.Document, now time.Time) *agentflow.Document {
	c := cloneDocument(doc)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.UserID == "" {
		c.UserID = auth.FromContext(ctx).UserID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return c
}

// visible reports whether the caller in ctx may see doc. Callers without a
// user id see only documents without an owner.
func visible(ctx context.Context, doc *agentflow.Document) bool {
	return doc.UserID == auth.FromContext(ctx).UserID
}

func sortNewestFirst(docs []*agentflow.Document) {
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UpdatedAt.After(docs[j].UpdatedAt) })
}
