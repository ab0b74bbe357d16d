package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/agentflow/internal/agentflow"
)

type saveRequest struct {
	Name string `json:"name"`
}

func (s *Server) saveWorkflow(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := s.workspace(r).Persistence.Save(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	docs, err := s.workspace(r).Persistence.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []*agentflow.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) loadWorkflow(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	restored, err := ws.Persistence.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     restored.ID,
		"name":   restored.Name,
		"canvas": viewOf(ws),
	})
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.workspace(r).Persistence.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
