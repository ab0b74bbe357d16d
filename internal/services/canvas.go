package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/dag"
	"github.com/soochol/agentflow/internal/events"
	"github.com/soochol/agentflow/internal/graph"
)

// Messages for structural connection rejections.
const (
	MsgSelfConnection = "An agent cannot be connected to itself"
	MsgCycle          = "Connection would create a cycle"
)

// NodePatch is a form-field edit. Nil fields are left unchanged. Derived
// connection state cannot be patched.
type NodePatch struct {
	Name        *string             `json:"name,omitempty"`
	Input       *string             `json:"input,omitempty"`
	Description *string             `json:"description,omitempty"`
	Speaker     *string             `json:"speaker,omitempty"`
	Position    *agentflow.Position `json:"position,omitempty"`
}

// CanvasController turns user gestures into graph mutations. It owns the
// edge list and keeps every node's derived connection fields in line with
// it: a node has at most one incoming edge, and IsInputConnected and
// SourceNodeID are only ever written here.
//
// Lock order is controller, then store. Store observers run while the
// controller lock is held and must not call back into the controller.
type CanvasController struct {
	mu      sync.Mutex
	store   *graph.Store
	edges   []agentflow.Connection
	results *ResultCache
	ids     *agentflow.NodeIDs
	bus     *events.Bus
	gen     uint64 // bumped by Clear and Install
}

func NewCanvasController(store *graph.Store, results *ResultCache, ids *agentflow.NodeIDs, bus *events.Bus) *CanvasController {
	if ids == nil {
		ids = agentflow.NewNodeIDs(nil)
	}
	if bus == nil {
		bus = events.NewBus()
	}
	if results == nil {
		results = NewResultCache()
	}
	return &CanvasController{store: store, results: results, ids: ids, bus: bus}
}

// AddNode creates an agent of the given kind at pos, as a completed drop.
func (c *CanvasController) AddNode(kind agentflow.AgentKind, pos agentflow.Position) (agentflow.Agent, error) {
	if !kind.Valid() {
		return agentflow.Agent{}, &agentflow.ValidationError{Message: fmt.Sprintf("unknown agent kind %q", kind)}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a := agentflow.NewAgent(c.ids.Next(kind), kind, pos)
	c.store.Upsert(a.ID, a)
	return a, nil
}

// Connect wires source's output into target's input.
//
// Illegal attempts publish a transient notification and return a
// *agentflow.ValidationError without touching any state. A legal edge
// replaces whatever edge previously fed target.
func (c *CanvasController) Connect(source, target string) (agentflow.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, okSrc := c.store.Get(source)
	tgt, okTgt := c.store.Get(target)
	if !okSrc || !okTgt {
		return agentflow.Connection{}, c.reject(agentflow.ValidationResult{Message: agentflow.MsgInvalidConnection})
	}
	if v := agentflow.ValidateConnection(src.Kind); !v.IsValid {
		return agentflow.Connection{}, c.reject(v)
	}
	if source == target {
		return agentflow.Connection{}, c.reject(agentflow.ValidationResult{Message: MsgSelfConnection})
	}
	var kept []agentflow.Connection
	for _, e := range c.edges {
		if e.Target != target {
			kept = append(kept, e)
		}
	}
	if dag.Reachable(kept, target, source) {
		return agentflow.Connection{}, c.reject(agentflow.ValidationResult{Message: MsgCycle})
	}

	c.removeEdgesLocked(func(e agentflow.Connection) bool { return e.Target == target })

	edge := agentflow.NewConnection(source, target)
	c.edges = append(c.edges, edge)

	tgt, _ = c.store.Get(target)
	tgt.IsInputConnected = true
	tgt.SourceNodeID = source
	tgt.Input = c.results.TextOutput(source, c.store.IDs())
	c.store.Upsert(target, tgt)

	c.publish(agentflow.EventEdgeAdded, target, map[string]any{"connection": edge})
	return edge, nil
}

func (c *CanvasController) reject(v agentflow.ValidationResult) error {
	slog.Debug("connection rejected", "reason", v.Message)
	c.bus.Publish(agentflow.NewNotification(v.Message))
	return agentflow.NewValidationError(v)
}

// Disconnect removes the given edges. Every target that lost its edge is
// reset before Disconnect returns. It returns the removed edges and
// ErrEdgeNotFound when none of ids matched.
func (c *CanvasController) Disconnect(ids ...string) ([]agentflow.Connection, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.removeEdgesLocked(func(e agentflow.Connection) bool { return want[e.ID] })
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: %v", agentflow.ErrEdgeNotFound, ids)
	}
	return removed, nil
}

// DeleteNode removes id with every edge touching it.
func (c *CanvasController) DeleteNode(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.Get(id); !ok {
		return fmt.Errorf("%w: %s", agentflow.ErrNodeNotFound, id)
	}
	c.removeEdgesLocked(func(e agentflow.Connection) bool { return e.Source == id || e.Target == id })
	c.store.Remove(id)
	return nil
}

// UpdateNode applies a form-field edit to id.
func (c *CanvasController) UpdateNode(id string, p NodePatch) (agentflow.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.store.Get(id)
	if !ok {
		return agentflow.Agent{}, fmt.Errorf("%w: %s", agentflow.ErrNodeNotFound, id)
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Input != nil {
		a.Input = *p.Input
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Position != nil {
		a.Position = *p.Position
	}
	if p.Speaker != nil {
		if a.Kind != agentflow.KindAudio {
			return agentflow.Agent{}, &agentflow.ValidationError{Message: "only audio agents have a speaker"}
		}
		a.Audio = &agentflow.AudioSettings{Speaker: *p.Speaker}
	}
	c.store.Upsert(id, a)
	return a, nil
}

// Clear empties the canvas and forgets the cached run outcome.
func (c *CanvasController) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.edges = nil
	c.store.Clear()
	c.results.Reset()
}

// Install bulk-replaces the canvas with g, as a load does. Persisted
// connection flags are not trusted: every node starts disconnected and the
// derived fields are recomputed from g's edges. Inputs are kept. Edges
// that Connect would refuse are dropped.
func (c *CanvasController) Install(g agentflow.Graph) {
	agents := make([]agentflow.Agent, len(g.Agents))
	index := make(map[string]int, len(g.Agents))
	for i, a := range g.Agents {
		a = a.Clone()
		a.IsInputConnected = false
		a.SourceNodeID = ""
		agents[i] = a
		index[a.ID] = i
		c.ids.Observe(a.ID)
	}
	var edges []agentflow.Connection
	for _, e := range g.Connections {
		i, ok := index[e.Target]
		if !ok {
			slog.Warn("dropping connection to unknown node", "edge", e.ID, "target", e.Target)
			continue
		}
		src, ok := index[e.Source]
		if !ok {
			slog.Warn("dropping connection from unknown node", "edge", e.ID, "source", e.Source)
			continue
		}
		if v := agentflow.ValidateConnection(agents[src].Kind); !v.IsValid {
			slog.Warn("dropping invalid connection", "edge", e.ID, "source", e.Source, "reason", v.Message)
			continue
		}
		if e.Source == e.Target {
			slog.Warn("dropping self connection", "edge", e.ID, "node", e.Source)
			continue
		}
		if dag.Reachable(edges, e.Target, e.Source) {
			slog.Warn("dropping connection that closes a cycle", "edge", e.ID, "source", e.Source, "target", e.Target)
			continue
		}
		if agents[i].IsInputConnected {
			slog.Warn("dropping extra incoming connection", "edge", e.ID, "target", e.Target)
			continue
		}
		agents[i].IsInputConnected = true
		agents[i].SourceNodeID = e.Source
		edges = append(edges, e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.edges = edges
	c.store.Replace(agents)
}

// FeedInputs copies upstream output into every connected target. lookup
// returns the text to propagate for a source node; false leaves the target
// untouched. It returns the number of targets updated.
func (c *CanvasController) FeedInputs(lookup func(source string, nodeIDs []string) (string, bool)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedInputsLocked(lookup)
}

func (c *CanvasController) feedInputsLocked(lookup func(source string, nodeIDs []string) (string, bool)) int {
	ids := c.store.IDs()
	n := 0
	for _, e := range c.edges {
		text, ok := lookup(e.Source, ids)
		if !ok {
			continue
		}
		tgt, exists := c.store.Get(e.Target)
		if !exists {
			continue
		}
		tgt.Input = text
		c.store.Upsert(e.Target, tgt)
		n++
	}
	return n
}

// Snapshot returns a consistent copy of nodes and edges.
func (c *CanvasController) Snapshot() agentflow.Graph {
	g, _ := c.snapshotAt()
	return g
}

// snapshotAt is Snapshot plus the generation the copy was taken at.
func (c *CanvasController) snapshotAt() (agentflow.Graph, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return agentflow.Graph{
		Agents:      c.store.All(),
		Connections: append([]agentflow.Connection(nil), c.edges...),
	}, c.gen
}

// settle runs fn under the controller lock if the canvas has not been
// cleared or replaced since generation gen. It reports whether fn ran.
func (c *CanvasController) settle(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	fn()
	return true
}

// Edges returns a copy of the edge list.
func (c *CanvasController) Edges() []agentflow.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]agentflow.Connection(nil), c.edges...)
}

func (c *CanvasController) removeEdgesLocked(match func(agentflow.Connection) bool) []agentflow.Connection {
	var kept, removed []agentflow.Connection
	for _, e := range c.edges {
		if match(e) {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	c.edges = kept
	for _, e := range removed {
		c.resetTargetLocked(e.Target)
		c.publish(agentflow.EventEdgeRemoved, e.Target, map[string]any{"connection": e})
	}
	return removed
}

func (c *CanvasController) resetTargetLocked(id string) {
	a, ok := c.store.Get(id)
	if !ok {
		return
	}
	a.ResetInput()
	c.store.Upsert(id, a)
}

func (c *CanvasController) publish(typ, nodeID string, payload map[string]any) {
	c.bus.Publish(agentflow.Event{Type: typ, NodeID: nodeID, Payload: payload, At: time.Now()})
}
