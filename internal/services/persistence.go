package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
	"github.com/soochol/agentflow/internal/auth"
)

// Edge styling regenerated on every load. Storage never carries it.
const (
	edgeStroke      = "#8b5cf6"
	edgeStrokeWidth = 3
	edgeDasharray   = "5, 10"
	edgeMarker      = "arrowclosed"
)

// EdgeStyle is display-only metadata of a rendered connection.
type EdgeStyle struct {
	Animated        bool       `json:"animated"`
	Stroke          string     `json:"stroke"`
	StrokeWidth     int        `json:"strokeWidth"`
	StrokeDasharray string     `json:"strokeDasharray"`
	MarkerEnd       EdgeMarker `json:"markerEnd"`
}

type EdgeMarker struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// RenderedEdge is a connection plus its styling.
type RenderedEdge struct {
	agentflow.Connection
	Style EdgeStyle `json:"style"`
}

func DefaultEdgeStyle() EdgeStyle {
	return EdgeStyle{
		Animated:        true,
		Stroke:          edgeStroke,
		StrokeWidth:     edgeStrokeWidth,
		StrokeDasharray: edgeDasharray,
		MarkerEnd:       EdgeMarker{Type: edgeMarker, Color: edgeStroke},
	}
}

// RenderEdges attaches the default styling to conns.
func RenderEdges(conns []agentflow.Connection) []RenderedEdge {
	out := make([]RenderedEdge, len(conns))
	for i, c := range conns {
		out[i] = RenderedEdge{Connection: c, Style: DefaultEdgeStyle()}
	}
	return out
}

// Restored is a stored document turned back into canvas state.
type Restored struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Graph   agentflow.Graph    `json:"graph"`
	Edges   []RenderedEdge     `json:"edges"`
	Results []agentflow.Output `json:"results,omitempty"`
}

// Serialize turns a workflow into a document. Derived connection state is
// not written.
func Serialize(wf agentflow.Workflow) *agentflow.Document {
	doc := &agentflow.Document{
		Name:             wf.Name,
		Agents:           make([]agentflow.DocumentAgent, len(wf.Agents)),
		Connections:      make([]agentflow.Connection, len(wf.Connections)),
		ExecutionResults: append([]agentflow.Output(nil), wf.LastResults...),
	}
	for i, a := range wf.Agents {
		pos := a.Position
		doc.Agents[i] = agentflow.DocumentAgent{
			ID:          a.ID,
			Kind:        a.Kind,
			Name:        a.Name,
			Input:       a.Input,
			Description: a.Description,
			Speaker:     a.Speaker(),
			Position:    &pos,
		}
	}
	copy(doc.Connections, wf.Connections)
	return doc
}

// Restore validates doc and rebuilds canvas state from it. place supplies
// a position for agents stored without one. Nothing is returned for a
// document missing required fields.
func Restore(doc *agentflow.Document, place func() agentflow.Position) (*Restored, error) {
	if doc == nil {
		return nil, &agentflow.MalformedDataError{Field: "document"}
	}
	if doc.Agents == nil {
		return nil, &agentflow.MalformedDataError{Field: "agents"}
	}
	if doc.Connections == nil {
		return nil, &agentflow.MalformedDataError{Field: "connections"}
	}
	if place == nil {
		place = randomPosition
	}

	agents := make([]agentflow.Agent, len(doc.Agents))
	for i, da := range doc.Agents {
		if da.ID == "" {
			return nil, &agentflow.MalformedDataError{Field: fmt.Sprintf("agents[%d].id", i)}
		}
		if !da.Kind.Valid() {
			return nil, &agentflow.MalformedDataError{Field: fmt.Sprintf("agents[%d].type", i)}
		}
		pos := place()
		if da.Position != nil {
			pos = *da.Position
		}
		a := agentflow.NewAgent(da.ID, da.Kind, pos)
		a.Name = da.Name
		a.Input = da.Input
		a.Description = da.Description
		if a.Kind == agentflow.KindAudio && da.Speaker != "" {
			a.Audio.Speaker = da.Speaker
		}
		agents[i] = a
	}

	conns := make([]agentflow.Connection, len(doc.Connections))
	for i, c := range doc.Connections {
		if c.Source == "" {
			return nil, &agentflow.MalformedDataError{Field: fmt.Sprintf("connections[%d].source", i)}
		}
		if c.Target == "" {
			return nil, &agentflow.MalformedDataError{Field: fmt.Sprintf("connections[%d].target", i)}
		}
		if c.ID == "" {
			c.ID = agentflow.ConnectionID(c.Source, c.Target)
		}
		conns[i] = c
	}

	return &Restored{
		ID:      doc.ID,
		Name:    doc.Name,
		Graph:   agentflow.Graph{Agents: agents, Connections: conns},
		Edges:   RenderEdges(conns),
		Results: append([]agentflow.Output(nil), doc.ExecutionResults...),
	}, nil
}

func randomPosition() agentflow.Position {
	return agentflow.Position{X: rand.Float64() * 500, Y: rand.Float64() * 300}
}

// PersistenceAdapter saves the canvas to, and restores it from, the
// persistence collaborator.
type PersistenceAdapter struct {
	canvas  *CanvasController
	results *ResultCache
	docs    ports.DocumentStore
	place   func() agentflow.Position
}

func NewPersistenceAdapter(canvas *CanvasController, results *ResultCache, docs ports.DocumentStore) *PersistenceAdapter {
	return &PersistenceAdapter{canvas: canvas, results: results, docs: docs, place: randomPosition}
}

// Save stores the current canvas and last results under name.
func (p *PersistenceAdapter) Save(ctx context.Context, name string) (*agentflow.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &agentflow.ValidationError{Message: "workflow name is required"}
	}
	sess, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	g := p.canvas.Snapshot()
	doc := Serialize(agentflow.Workflow{
		Name:        name,
		Agents:      g.Agents,
		Connections: g.Connections,
		LastResults: p.results.Outputs(),
	})
	doc.UserID = sess.UserID
	saved, err := p.docs.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("save workflow: %w", err)
	}
	slog.Info("workflow saved", "name", name, "agents", len(doc.Agents), "connections", len(doc.Connections))
	return saved, nil
}

// List returns the caller's stored workflows.
func (p *PersistenceAdapter) List(ctx context.Context) ([]*agentflow.Document, error) {
	if _, err := auth.RequireUser(ctx); err != nil {
		return nil, err
	}
	docs, err := p.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return docs, nil
}

// Load fetches document id and installs it on the canvas. A malformed
// document is rejected before anything is installed. Stored results
// become the current result; without them the previous run is forgotten.
func (p *PersistenceAdapter) Load(ctx context.Context, id string) (*Restored, error) {
	doc, err := p.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	restored, err := Restore(doc, p.place)
	if err != nil {
		return nil, err
	}
	p.canvas.Install(restored.Graph)
	if len(restored.Results) > 0 {
		p.results.SetResult(&agentflow.ExecutionResult{Success: true, Outputs: restored.Results})
	} else {
		p.results.Reset()
	}
	restored.Graph = p.canvas.Snapshot()
	restored.Edges = RenderEdges(restored.Graph.Connections)
	slog.Info("workflow loaded", "id", id, "agents", len(restored.Graph.Agents))
	return restored, nil
}

// Delete removes a stored workflow.
func (p *PersistenceAdapter) Delete(ctx context.Context, id string) error {
	if err := p.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	return nil
}
