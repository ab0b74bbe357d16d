// Package api exposes the canvas workspace over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soochol/agentflow/internal/auth"
	"github.com/soochol/agentflow/internal/services"
)

// Pinger reports whether the remote service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	spaces *services.WorkspaceManager
	tokens *auth.TokenVerifier
	remote Pinger
}

func NewServer(spaces *services.WorkspaceManager) *Server {
	return &Server{spaces: spaces}
}

// SetTokenVerifier enables bearer token credentials.
func (s *Server) SetTokenVerifier(v *auth.TokenVerifier) {
	s.tokens = v
}

// SetRemote configures the service checked by /api/health/remote.
func (s *Server) SetRemote(p Pinger) {
	s.remote = p
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", auth.HeaderSessionID, auth.HeaderUserID},
		AllowCredentials: true,
	}))
	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)
		r.Route("/canvas", func(r chi.Router) {
			r.Get("/", s.getCanvas)
			r.Post("/nodes", s.addNode)
			r.Patch("/nodes/{id}", s.updateNode)
			r.Delete("/nodes/{id}", s.deleteNode)
			r.Post("/connections", s.connect)
			r.Delete("/connections/{id}", s.disconnect)
			r.Post("/clear", s.clearCanvas)
			r.Post("/run", s.runCanvas)
			r.Get("/events", s.streamEvents)
			r.Get("/preview", s.previewCanvas)
		})
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", s.listWorkflows)
			r.Post("/", s.saveWorkflow)
			r.Post("/{id}/load", s.loadWorkflow)
			r.Delete("/{id}", s.deleteWorkflow)
		})
		r.Get("/health/remote", s.remoteHealth)
	})
	return r
}

// workspace returns the caller's workspace.
func (s *Server) workspace(r *http.Request) *services.Workspace {
	return s.spaces.Get(auth.FromContext(r.Context()).Key())
}

func (s *Server) remoteHealth(w http.ResponseWriter, r *http.Request) {
	if s.remote == nil {
		http.Error(w, "remote service not configured", http.StatusNotImplemented)
		return
	}
	if err := s.remote.Ping(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
