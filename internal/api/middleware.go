package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/soochol/agentflow/internal/auth"
)

// withSession attaches the caller's credential to the request context. A
// bearer token wins over the session headers; an invalid token is
// rejected outright.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := auth.Session{
			ID:     r.Header.Get(auth.HeaderSessionID),
			UserID: r.Header.Get(auth.HeaderUserID),
		}
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			verified, err := s.tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				slog.Debug("rejected bearer token", "err", err)
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			sess = verified
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}
