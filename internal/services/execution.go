package services

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
	"github.com/soochol/agentflow/internal/dag"
	"github.com/soochol/agentflow/internal/events"
)

// ExecutionOrchestrator snapshots the canvas into an execution request,
// dispatches it and folds the response back into the canvas.
//
// At most one run is outstanding at a time. The orchestrator adds no
// timeout of its own; whatever deadline ctx carries is honoured by the
// executor.
type ExecutionOrchestrator struct {
	canvas   *CanvasController
	results  *ResultCache
	executor ports.Executor
	bus      *events.Bus
	loading  atomic.Bool
}

func NewExecutionOrchestrator(canvas *CanvasController, results *ResultCache, executor ports.Executor, bus *events.Bus) *ExecutionOrchestrator {
	if bus == nil {
		bus = events.NewBus()
	}
	return &ExecutionOrchestrator{canvas: canvas, results: results, executor: executor, bus: bus}
}

// BuildRequest converts g into the execution request document. Agents are
// listed in dependency order; connection flags are derived by scanning the
// edge list.
func BuildRequest(g agentflow.Graph) *agentflow.ExecutionRequest {
	agents := orderAgents(g)
	req := &agentflow.ExecutionRequest{
		Agents:      make([]agentflow.RequestAgent, 0, len(agents)),
		Connections: make([]agentflow.Connection, 0, len(g.Connections)),
	}
	for _, a := range agents {
		ra := agentflow.RequestAgent{
			ID:          a.ID,
			Kind:        a.Kind,
			Name:        a.Name,
			Input:       a.Input,
			Description: a.Description,
			Speaker:     a.Speaker(),
		}
		if e, ok := g.IncomingEdge(a.ID); ok {
			ra.IsConnected = true
			ra.SourceNodeID = e.Source
		}
		req.Agents = append(req.Agents, ra)
	}
	for _, c := range g.Connections {
		req.Connections = append(req.Connections, agentflow.Connection{ID: c.ID, Source: c.Source, Target: c.Target})
	}
	return req
}

func orderAgents(g agentflow.Graph) []agentflow.Agent {
	d, err := dag.Build(g)
	if err != nil {
		slog.Warn("workflow graph is not a DAG, sending agents by id", "err", err)
		agents := append([]agentflow.Agent(nil), g.Agents...)
		sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
		return agents
	}
	agents := make([]agentflow.Agent, 0, len(g.Agents))
	for _, id := range d.TopologicalOrder() {
		a, _ := d.Node(id)
		agents = append(agents, a)
	}
	return agents
}

// Loading reports whether a run is in flight.
func (o *ExecutionOrchestrator) Loading() bool {
	return o.loading.Load()
}

// State returns what the response panel shows.
func (o *ExecutionOrchestrator) State() agentflow.RunState {
	return agentflow.RunState{
		Loading: o.loading.Load(),
		Result:  o.results.Result(),
		Error:   o.results.Error(),
	}
}

// Run executes the current canvas. It returns false without dispatching
// anything when a run is already in flight.
//
// Failures never escape: a transport or service error is recorded as the
// run error with the previous result kept, and a response with
// success=false leaves no result. If the canvas is cleared or loaded while
// the call is in flight, the outcome is dropped.
func (o *ExecutionOrchestrator) Run(ctx context.Context) bool {
	if !o.loading.CompareAndSwap(false, true) {
		slog.Debug("run already in progress, ignoring")
		return false
	}
	defer o.loading.Store(false)

	o.results.ClearError()
	g, gen := o.canvas.snapshotAt()
	req := BuildRequest(g)
	o.publish(agentflow.EventRunStarted, map[string]any{"agents": len(req.Agents), "connections": len(req.Connections)})

	start := time.Now()
	resp, err := o.executor.Execute(ctx, req)
	if err != nil {
		msg := runErrorMessage(err)
		slog.Error("execute workflow failed", "err", err)
		if !o.canvas.settle(gen, func() { o.results.SetError(msg) }) {
			o.discard()
			return true
		}
		o.publish(agentflow.EventRunFailed, map[string]any{"error": msg})
		return true
	}
	if resp == nil || !resp.Success {
		slog.Info("execution service reported no result", "duration", time.Since(start))
		if !o.canvas.settle(gen, func() { o.results.SetResult(nil) }) {
			o.discard()
			return true
		}
		o.publish(agentflow.EventRunCompleted, map[string]any{"success": false})
		return true
	}

	var fed int
	settled := o.canvas.settle(gen, func() {
		o.results.SetResult(resp)
		fed = o.canvas.feedInputsLocked(func(source string, ids []string) (string, bool) {
			text := agentflow.TextOutput(resp.Outputs, source, ids)
			return text, text != ""
		})
	})
	if !settled {
		o.discard()
		return true
	}
	slog.Info("workflow executed", "outputs", len(resp.Outputs), "fed", fed, "duration", time.Since(start))
	o.publish(agentflow.EventRunCompleted, map[string]any{"success": true, "outputs": len(resp.Outputs)})
	return true
}

// discard drops the outcome of a run whose canvas was cleared or replaced
// while the call was in flight.
func (o *ExecutionOrchestrator) discard() {
	slog.Info("canvas changed during run, discarding outcome")
	o.publish(agentflow.EventRunCompleted, map[string]any{"discarded": true})
}

func runErrorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Failed to execute workflow"
}

func (o *ExecutionOrchestrator) publish(typ string, payload map[string]any) {
	o.bus.Publish(agentflow.Event{Type: typ, Payload: payload, At: time.Now()})
}
