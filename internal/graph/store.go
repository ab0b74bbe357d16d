// Package graph holds the canonical per-node agent data of a canvas,
// keyed by node id and independent of how the nodes are drawn.
package graph

import (
	"sync"
	"time"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/events"
)

// Store is the single source of truth for what a node currently contains.
// Every mutation is atomic; readers always receive copies. Change events
// are published after the store lock is released.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]agentflow.Agent
	bus   *events.Bus
}

// New creates an empty store publishing on bus; a nil bus gets a private
// one.
func New(bus *events.Bus) *Store {
	if bus == nil {
		bus = events.NewBus()
	}
	return &Store{nodes: make(map[string]agentflow.Agent), bus: bus}
}

// Upsert replaces every logical field of node id with a.
func (s *Store) Upsert(id string, a agentflow.Agent) {
	a = a.Clone()
	a.ID = id
	s.mu.Lock()
	s.nodes[id] = a
	s.mu.Unlock()
	s.publish(agentflow.EventNodeUpserted, id, map[string]any{"agent": a.Clone()})
}

// Remove deletes node id and reports whether it existed. Dependent edges
// are the caller's responsibility.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.nodes[id]
	delete(s.nodes, id)
	s.mu.Unlock()
	if ok {
		s.publish(agentflow.EventNodeRemoved, id, nil)
	}
	return ok
}

func (s *Store) Get(id string) (agentflow.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.nodes[id]
	if !ok {
		return agentflow.Agent{}, false
	}
	return a.Clone(), true
}

// All returns every node in arbitrary order.
func (s *Store) All() []agentflow.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agentflow.Agent, 0, len(s.nodes))
	for _, a := range s.nodes {
		out = append(out, a.Clone())
	}
	return out
}

// IDs returns the id of every node in arbitrary order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Replace swaps the whole node set in one step, as a load does.
func (s *Store) Replace(agents []agentflow.Agent) {
	next := make(map[string]agentflow.Agent, len(agents))
	for _, a := range agents {
		next[a.ID] = a.Clone()
	}
	s.mu.Lock()
	s.nodes = next
	s.mu.Unlock()
	s.publish(agentflow.EventGraphReplaced, "", map[string]any{"count": len(next)})
}

// Clear removes every node.
func (s *Store) Clear() {
	s.mu.Lock()
	s.nodes = make(map[string]agentflow.Agent)
	s.mu.Unlock()
	s.publish(agentflow.EventGraphCleared, "", nil)
}

// Subscribe registers an observer for change events.
func (s *Store) Subscribe(h events.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(h)
}

func (s *Store) publish(typ, nodeID string, payload map[string]any) {
	s.bus.Publish(agentflow.Event{Type: typ, NodeID: nodeID, Payload: payload, At: time.Now()})
}
