package events

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/agentflow/internal/agentflow"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

func TestNATSForwarder_Forwards(t *testing.T) {
	pub := &recordingPublisher{}
	fwd := newForwarder(pub, "canvas")
	bus := NewBus()
	unsubscribe := fwd.Attach(bus, "sess.1")
	defer unsubscribe()

	bus.Publish(agentflow.Event{Type: agentflow.EventEdgeAdded, NodeID: "chat-2"})

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "canvas.sess_1.edge_added", pub.subjects[0])

	var got agentflow.Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, "chat-2", got.NodeID)
}

func TestNATSForwarder_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	fwd := newForwarder(pub, "")
	bus := NewBus()
	fwd.Attach(bus, "")

	assert.NotPanics(t, func() {
		bus.Publish(agentflow.Event{Type: agentflow.EventGraphCleared})
	})
	assert.Equal(t, []string{"agentflow.canvas._.graph_cleared"}, pub.subjects)
}
