package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
)

// RetryPolicy controls how failed execution calls are retried.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// RetryExecutor retries transient execution service failures with
// exponential backoff. A response, including success=false, is never
// retried.
type RetryExecutor struct {
	next   ports.Executor
	policy RetryPolicy
}

var _ ports.Executor = (*RetryExecutor)(nil)

func NewRetryExecutor(next ports.Executor, policy RetryPolicy) *RetryExecutor {
	if policy.BackoffFactor <= 0 {
		policy.BackoffFactor = 2
	}
	return &RetryExecutor{next: next, policy: policy}
}

func (r *RetryExecutor) Execute(ctx context.Context, req *agentflow.ExecutionRequest) (*agentflow.ExecutionResult, error) {
	for attempt := 0; ; attempt++ {
		res, err := r.next.Execute(ctx, req)
		if err == nil || !isRetryable(err) || attempt >= r.policy.MaxRetries {
			return res, err
		}
		slog.Warn("retry: execute workflow failed", "attempt", attempt+1, "err", err)
		if !sleepWithBackoff(ctx, r.policy, attempt) {
			return nil, err
		}
	}
}

// sleepWithBackoff waits for the backoff duration. It reports false when
// ctx ended first.
func sleepWithBackoff(ctx context.Context, policy RetryPolicy, attempt int) bool {
	delay := calculateBackoff(policy, attempt)
	slog.Info("retry: backing off", "attempt", attempt+1, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// calculateBackoff computes the delay for a given attempt using exponential backoff.
func calculateBackoff(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffFactor, float64(attempt))
	if policy.MaxDelay > 0 && time.Duration(delay) > policy.MaxDelay {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}

// isRetryable reports whether err is a transport failure or a status the
// service may recover from.
func isRetryable(err error) bool {
	var netErr *agentflow.NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	switch netErr.Status {
	case 0, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
