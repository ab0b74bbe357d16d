package events

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/soochol/agentflow/internal/agentflow"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes canvas events on NATS so observers in other
// processes can follow a workspace. Subjects have the form
// "<prefix>.<workspace>.<event type>".
type NATSForwarder struct {
	pub    publisher
	prefix string
}

// ConnectNATS dials the broker used by NewNATSForwarder.
func ConnectNATS(url string, maxReconnects int) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("agentflow"),
		nats.MaxReconnects(maxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

func NewNATSForwarder(nc *nats.Conn, prefix string) *NATSForwarder {
	return newForwarder(nc, prefix)
}

func newForwarder(pub publisher, prefix string) *NATSForwarder {
	if prefix == "" {
		prefix = "agentflow.canvas"
	}
	return &NATSForwarder{pub: pub, prefix: prefix}
}

// Attach subscribes the forwarder to bus for the given workspace key.
func (f *NATSForwarder) Attach(bus *Bus, workspace string) (unsubscribe func()) {
	return bus.Subscribe(func(e agentflow.Event) { f.forward(workspace, e) })
}

func (f *NATSForwarder) forward(workspace string, e agentflow.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Warn("marshal canvas event failed", "type", e.Type, "err", err)
		return
	}
	if err := f.pub.Publish(f.Subject(workspace, e.Type), data); err != nil {
		slog.Warn("nats publish failed", "type", e.Type, "err", err)
	}
}

// Subject returns the NATS subject for an event type in a workspace.
func (f *NATSForwarder) Subject(workspace, eventType string) string {
	return f.prefix + "." + sanitizeToken(workspace) + "." + eventType
}

// NATS subjects use '.' as separator and reserve '*' and '>'.
func sanitizeToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
