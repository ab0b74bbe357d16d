package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soochol/agentflow/internal/agentflow"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and writes {"error": message}.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		validation *agentflow.ValidationError
		malformed  *agentflow.MalformedDataError
		network    *agentflow.NetworkError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agentflow.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, agentflow.ErrNodeNotFound),
		errors.Is(err, agentflow.ErrEdgeNotFound),
		errors.Is(err, agentflow.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &network):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
