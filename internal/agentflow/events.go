package agentflow

import "time"

// Event is a change notification published to canvas observers. It
// decouples the graph state from transport concerns (SSE, NATS).
type Event struct {
	Type    string         `json:"type"`
	NodeID  string         `json:"node_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Event type constants.
const (
	EventNodeUpserted  = "node_upserted"
	EventNodeRemoved   = "node_removed"
	EventGraphReplaced = "graph_replaced"
	EventGraphCleared  = "graph_cleared"
	EventEdgeAdded     = "edge_added"
	EventEdgeRemoved   = "edge_removed"
	EventRunStarted    = "run_started"
	EventRunCompleted  = "run_completed"
	EventRunFailed     = "run_failed"
	EventNotification  = "notification"
)

// NotificationDismissAfter is how long a transient notification stays on
// screen.
const NotificationDismissAfter = 3 * time.Second

// NewNotification builds a transient, dismissible error notification.
func NewNotification(message string) Event {
	return Event{
		Type: EventNotification,
		Payload: map[string]any{
			"level":            "error",
			"message":          message,
			"dismiss_after_ms": NotificationDismissAfter.Milliseconds(),
		},
		At: time.Now(),
	}
}
