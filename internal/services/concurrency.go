package services

import (
	"context"
	"sync/atomic"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
)

// ConcurrencyLimiter bounds how many executions all workspaces together
// may have in flight at the execution service. Each workspace already runs
// at most one at a time.
type ConcurrencyLimiter struct {
	next        ports.Executor
	slots       chan struct{}
	activeCount atomic.Int64
}

var _ ports.Executor = (*ConcurrencyLimiter)(nil)

// NewConcurrencyLimiter wraps next; max <= 0 means 10.
func NewConcurrencyLimiter(next ports.Executor, max int) *ConcurrencyLimiter {
	if max <= 0 {
		max = 10
	}
	return &ConcurrencyLimiter{next: next, slots: make(chan struct{}, max)}
}

// Execute waits for a free slot, or returns ctx's error if it ends first.
func (c *ConcurrencyLimiter) Execute(ctx context.Context, req *agentflow.ExecutionRequest) (*agentflow.ExecutionResult, error) {
	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.activeCount.Add(1)
	defer func() {
		c.activeCount.Add(-1)
		<-c.slots
	}()
	return c.next.Execute(ctx, req)
}

// ConcurrencyStats reports current usage.
type ConcurrencyStats struct {
	ActiveRuns int `json:"active_runs"`
	GlobalMax  int `json:"global_max"`
}

func (c *ConcurrencyLimiter) Stats() ConcurrencyStats {
	return ConcurrencyStats{
		ActiveRuns: int(c.activeCount.Load()),
		GlobalMax:  cap(c.slots),
	}
}
