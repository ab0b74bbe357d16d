package agentflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a gesture names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when a disconnect names no existing edge.
	ErrEdgeNotFound = errors.New("connection not found")
	// ErrNotFound is returned when a stored workflow does not exist.
	ErrNotFound = errors.New("workflow not found")
	// ErrNotAuthenticated is returned when an operation needs a user id and
	// the request carries none.
	ErrNotAuthenticated = errors.New("User not authenticated")
)

// ValidationError reports an illegal gesture. Nothing was mutated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError wraps a failed ValidationResult.
func NewValidationError(r ValidationResult) *ValidationError {
	return &ValidationError{Message: r.Message}
}

// NetworkError reports a failed call to a remote collaborator, either at
// the transport level (Status == 0) or through a non-2xx status.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server error (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedDataError reports a stored document missing required fields.
type MalformedDataError struct {
	Field string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed workflow document: missing %s", e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
