package services

import (
	"context"
	"testing"
	"time"

	"github.com/soochol/agentflow/internal/agentflow"
)

func TestConcurrencyLimiter_BoundsInFlight(t *testing.T) {
	next := &stubExecutor{
		result:  &agentflow.ExecutionResult{Success: true},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	limiter := NewConcurrencyLimiter(next, 1)

	done := make(chan struct{})
	go func() {
		limiter.Execute(context.Background(), &agentflow.ExecutionRequest{})
		close(done)
	}()
	<-next.entered

	if stats := limiter.Stats(); stats.ActiveRuns != 1 || stats.GlobalMax != 1 {
		t.Fatalf("stats = %+v, want 1 active of 1", stats)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := limiter.Execute(ctx, &agentflow.ExecutionRequest{}); err == nil {
		t.Fatal("expected second execution to wait and time out")
	}

	close(next.release)
	<-done
	if stats := limiter.Stats(); stats.ActiveRuns != 0 {
		t.Fatalf("expected 0 active, got %d", stats.ActiveRuns)
	}
	if next.calls() != 1 {
		t.Errorf("calls = %d, want 1", next.calls())
	}
}

func TestConcurrencyLimiter_DefaultMax(t *testing.T) {
	limiter := NewConcurrencyLimiter(&stubExecutor{}, 0)
	if limiter.Stats().GlobalMax != 10 {
		t.Errorf("GlobalMax = %d, want 10", limiter.Stats().GlobalMax)
	}
}
