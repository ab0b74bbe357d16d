package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/preview"
	"github.com/soochol/agentflow/internal/services"
)

type canvasView struct {
	Agents      []agentflow.Agent       `json:"agents"`
	Connections []services.RenderedEdge `json:"connections"`
	Run         agentflow.RunState      `json:"run"`
}

func viewOf(ws *services.Workspace) canvasView {
	g := ws.Canvas.Snapshot()
	agents := g.Agents
	if agents == nil {
		agents = []agentflow.Agent{}
	}
	return canvasView{
		Agents:      agents,
		Connections: services.RenderEdges(g.Connections),
		Run:         ws.Orchestrator.State(),
	}
}

func (s *Server) getCanvas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.workspace(r)))
}

type addNodeRequest struct {
	Kind     agentflow.AgentKind `json:"type"`
	Position agentflow.Position  `json:"position"`
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.workspace(r).Canvas.AddNode(req.Kind, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	var patch services.NodePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	a, err := s.workspace(r).Canvas.UpdateNode(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.workspace(r).Canvas.DeleteNode(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type connectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	edge, err := s.workspace(r).Canvas.Connect(req.Source, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, services.RenderEdges([]agentflow.Connection{edge})[0])
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	if _, err := s.workspace(r).Canvas.Disconnect(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearCanvas(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	ws.Canvas.Clear()
	writeJSON(w, http.StatusOK, viewOf(ws))
}

// runCanvas executes the canvas and answers with the resulting state. A
// second run while one is in flight is refused with 409. A client hanging
// up does not cancel the run.
func (s *Server) runCanvas(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	if !ws.Orchestrator.Run(context.WithoutCancel(r.Context())) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ws))
}

func (s *Server) previewCanvas(w http.ResponseWriter, r *http.Request) {
	out, err := preview.Render(s.workspace(r).Canvas.Snapshot())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(out)
}
