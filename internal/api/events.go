package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soochol/agentflow/internal/agentflow"
)

const eventBuffer = 64

// streamEvents streams the workspace's change events and notifications as
// server-sent events until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	ch := s.workspace(r).Bus.Channel(r.Context(), eventBuffer)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range ch {
		writeSSEEvent(w, ev)
		flusher.Flush()
	}
}

func writeSSEEvent(w http.ResponseWriter, ev agentflow.Event) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}
