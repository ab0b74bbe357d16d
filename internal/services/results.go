package services

import (
	"sync"

	"github.com/soochol/agentflow/internal/agentflow"
)

// ResultCache holds the outcome of the most recent run: the result list
// shown in the response panel and the last error message.
type ResultCache struct {
	mu     sync.RWMutex
	result *agentflow.ExecutionResult
	err    string
}

func NewResultCache() *ResultCache {
	return &ResultCache{}
}

// SetResult stores r and clears the error.
func (c *ResultCache) SetResult(r *agentflow.ExecutionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = r.Clone()
	c.err = ""
}

// SetError records a failed run; the previous result is kept.
func (c *ResultCache) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = msg
}

func (c *ResultCache) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ""
}

// Reset forgets both result and error.
func (c *ResultCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
	c.err = ""
}

func (c *ResultCache) Result() *agentflow.ExecutionResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result.Clone()
}

func (c *ResultCache) Error() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Outputs returns the outputs of the last successful run.
func (c *ResultCache) Outputs() []agentflow.Output {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil || !c.result.Success {
		return nil
	}
	return append([]agentflow.Output(nil), c.result.Outputs...)
}

// TextOutput returns nodeID's text output from the last run, or "".
func (c *ResultCache) TextOutput(nodeID string, candidates []string) string {
	return agentflow.TextOutput(c.Outputs(), nodeID, candidates)
}
