// Package auth carries the caller's session credential through a request.
// Issuing and validating sessions belongs to the external auth service;
// this package only transports what it handed out.
package auth

import (
	"context"

	"github.com/soochol/agentflow/internal/agentflow"
)

// Header names used by the remote services.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderUserID    = "X-User-ID"
)

// Session is the credential attached to every remote call.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// Authenticated reports whether both parts of the credential are present.
func (s Session) Authenticated() bool {
	return s.ID != "" && s.UserID != ""
}

// Key identifies the workspace a session works in.
func (s Session) Key() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.UserID != "":
		return "user:" + s.UserID
	default:
		return "anonymous"
	}
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx, or the zero Session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}

// RequireUser returns the session in ctx or ErrNotAuthenticated when it has
// no user id.
func RequireUser(ctx context.Context) (Session, error) {
	s := FromContext(ctx)
	if s.UserID == "" {
		return s, agentflow.ErrNotAuthenticated
	}
	return s, nil
}
