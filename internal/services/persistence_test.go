package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/auth"
	"github.com/soochol/agentflow/internal/repository"
)

func userContext() context.Context {
	return auth.WithSession(context.Background(), auth.Session{ID: "sess-1", UserID: "user-1"})
}

// docStore serves fixed documents.
type docStore struct {
	doc *agentflow.Document
	err error
}

func (d docStore) Create(_ context.Context, doc *agentflow.Document) (*agentflow.Document, error) {
	return doc, d.err
}
func (d docStore) Get(context.Context, string) (*agentflow.Document, error) { return d.doc, d.err }
func (d docStore) List(context.Context) ([]*agentflow.Document, error)      { return nil, d.err }
func (d docStore) Delete(context.Context, string) error                     { return d.err }

func TestSaveLoad_RoundTrip(t *testing.T) {
	repo := repository.NewMemory()
	c, results, _ := newTestCanvas(t)
	p := NewPersistenceAdapter(c, results, repo)

	a := mustAdd(t, c, agentflow.KindChat)
	b := mustAdd(t, c, agentflow.KindAudio)
	_, err := c.UpdateNode(a.ID, NodePatch{Name: ptr("Writer"), Input: ptr("write"), Description: ptr("poet")})
	require.NoError(t, err)
	_, err = c.UpdateNode(b.ID, NodePatch{Speaker: ptr("nova@calm")})
	require.NoError(t, err)
	_, err = c.Connect(a.ID, b.ID)
	require.NoError(t, err)
	before := c.Snapshot()

	saved, err := p.Save(userContext(), "  story  ")
	require.NoError(t, err)
	assert.Equal(t, "story", saved.Name)

	c.Clear()
	restored, err := p.Load(userContext(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "story", restored.Name)

	after := c.Snapshot()
	require.Len(t, after.Agents, 2)
	for _, want := range before.Agents {
		got := node(t, after, want.ID)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Input, got.Input)
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.Speaker(), got.Speaker())
		assert.Equal(t, want.Position, got.Position)
		assert.Equal(t, want.IsInputConnected, got.IsInputConnected)
	}
	require.Len(t, after.Connections, 1)
	assert.Equal(t, a.ID, after.Connections[0].Source)
	assert.Equal(t, b.ID, after.Connections[0].Target)
	require.Len(t, restored.Edges, 1)
	assert.Equal(t, "#8b5cf6", restored.Edges[0].Style.Stroke)
	checkInvariants(t, c)
}

func TestSave_Validation(t *testing.T) {
	c, results, _ := newTestCanvas(t)
	p := NewPersistenceAdapter(c, results, repository.NewMemory())

	_, err := p.Save(userContext(), "   ")
	assert.True(t, agentflow.IsValidation(err))

	_, err = p.Save(context.Background(), "named")
	assert.ErrorIs(t, err, agentflow.ErrNotAuthenticated)

	_, err = p.List(context.Background())
	assert.ErrorIs(t, err, agentflow.ErrNotAuthenticated)
}

func TestSave_IncludesLastResults(t *testing.T) {
	c, results, _ := newTestCanvas(t)
	var captured *agentflow.Document
	p := NewPersistenceAdapter(c, results, captureStore{&captured})
	mustAdd(t, c, agentflow.KindChat)
	results.SetResult(&agentflow.ExecutionResult{Success: true, Outputs: []agentflow.Output{textOutput("chat-1", "done")}})

	_, err := p.Save(userContext(), "with results")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.UserID)
	require.Len(t, captured.ExecutionResults, 1)
	assert.Len(t, captured.Agents, 1)
	assert.NotNil(t, captured.Agents[0].Position)
}

type captureStore struct{ out **agentflow.Document }

func (s captureStore) Create(_ context.Context, doc *agentflow.Document) (*agentflow.Document, error) {
	*s.out = doc
	return doc, nil
}
func (captureStore) Get(context.Context, string) (*agentflow.Document, error) { return nil, nil }
func (captureStore) List(context.Context) ([]*agentflow.Document, error)      { return nil, nil }
func (captureStore) Delete(context.Context, string) error                     { return nil }

func TestLoad_MalformedInstallsNothing(t *testing.T) {
	tests := []struct {
		name  string
		doc   *agentflow.Document
		field string
	}{
		{"missing agents", &agentflow.Document{Connections: []agentflow.Connection{}}, "agents"},
		{"missing connections", &agentflow.Document{Agents: []agentflow.DocumentAgent{}}, "connections"},
		{"agent without id", &agentflow.Document{
			Agents:      []agentflow.DocumentAgent{{Kind: agentflow.KindChat}},
			Connections: []agentflow.Connection{},
		}, "agents[0].id"},
		{"unknown kind", &agentflow.Document{
			Agents:      []agentflow.DocumentAgent{{ID: "x-1", Kind: "video"}},
			Connections: []agentflow.Connection{},
		}, "agents[0].type"},
		{"edge without target", &agentflow.Document{
			Agents:      []agentflow.DocumentAgent{{ID: "chat-1", Kind: agentflow.KindChat}},
			Connections: []agentflow.Connection{{Source: "chat-1"}},
		}, "connections[0].target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, results, _ := newTestCanvas(t)
			existing := mustAdd(t, c, agentflow.KindChat)
			p := NewPersistenceAdapter(c, results, docStore{doc: tt.doc})

			_, err := p.Load(userContext(), "wf")
			var malformed *agentflow.MalformedDataError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.field, malformed.Field)

			g := c.Snapshot()
			require.Len(t, g.Agents, 1)
			assert.Equal(t, existing.ID, g.Agents[0].ID)
		})
	}
}

func TestLoad_ResultsAndPlacement(t *testing.T) {
	doc := &agentflow.Document{
		ID:   "wf-1",
		Name: "placed",
		Agents: []agentflow.DocumentAgent{
			{ID: "chat-1", Kind: agentflow.KindChat, Name: "A"},
			{ID: "chat-2", Kind: agentflow.KindChat, Name: "B", Position: &agentflow.Position{X: 5, Y: 6}},
		},
		Connections:      []agentflow.Connection{{Source: "chat-1", Target: "chat-2"}},
		ExecutionResults: []agentflow.Output{textOutput("chat-1", "stored")},
	}
	c, results, _ := newTestCanvas(t)
	p := NewPersistenceAdapter(c, results, docStore{doc: doc})
	p.place = func() agentflow.Position { return agentflow.Position{X: 42, Y: 24} }

	restored, err := p.Load(userContext(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "edge-chat-1-chat-2", restored.Graph.Connections[0].ID)

	g := c.Snapshot()
	assert.Equal(t, agentflow.Position{X: 42, Y: 24}, node(t, g, "chat-1").Position)
	assert.Equal(t, agentflow.Position{X: 5, Y: 6}, node(t, g, "chat-2").Position)
	require.NotNil(t, results.Result())
	assert.Equal(t, "stored", results.TextOutput("chat-1", nil))

	// Loading a document without results forgets the previous run.
	doc.ExecutionResults = nil
	_, err = p.Load(userContext(), "wf-1")
	require.NoError(t, err)
	assert.Nil(t, results.Result())
}

func TestLoad_StoreError(t *testing.T) {
	c, results, _ := newTestCanvas(t)
	p := NewPersistenceAdapter(c, results, docStore{err: errors.New("unreachable")})
	mustAdd(t, c, agentflow.KindChat)

	_, err := p.Load(userContext(), "wf")
	assert.Error(t, err)
	assert.Len(t, c.Snapshot().Agents, 1)
	assert.Error(t, p.Delete(userContext(), "wf"))
}

func TestRandomPositionBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		pos := randomPosition()
		if pos.X < 0 || pos.X >= 500 || pos.Y < 0 || pos.Y >= 300 {
			t.Fatalf("position out of range: %+v", pos)
		}
	}
}

func TestLoad_DropsConnectionsConnectWouldRefuse(t *testing.T) {
	agents := []agentflow.DocumentAgent{
		{ID: "chat-1", Kind: agentflow.KindChat},
		{ID: "chat-2", Kind: agentflow.KindChat},
		{ID: "image-3", Kind: agentflow.KindImage},
		{ID: "audio-4", Kind: agentflow.KindAudio},
		{ID: "chat-5", Kind: agentflow.KindChat},
	}
	tests := []struct {
		name  string
		conns []agentflow.Connection
		kept  []string
	}{
		{"image source", []agentflow.Connection{{ID: "e", Source: "image-3", Target: "chat-2"}}, nil},
		{"audio source", []agentflow.Connection{{ID: "e", Source: "audio-4", Target: "chat-2"}}, nil},
		{"self loop", []agentflow.Connection{{ID: "e", Source: "chat-1", Target: "chat-1"}}, nil},
		{"cycle", []agentflow.Connection{
			{ID: "a", Source: "chat-1", Target: "chat-2"},
			{ID: "b", Source: "chat-2", Target: "chat-5"},
			{ID: "c", Source: "chat-5", Target: "chat-1"},
		}, []string{"a", "b"}},
		{"valid chat source", []agentflow.Connection{{ID: "e", Source: "chat-1", Target: "image-3"}}, []string{"e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, results, _ := newTestCanvas(t)
			doc := &agentflow.Document{ID: "wf", Name: "stored", Agents: agents, Connections: tt.conns}
			p := NewPersistenceAdapter(c, results, docStore{doc: doc})

			restored, err := p.Load(userContext(), "wf")
			require.NoError(t, err)

			var ids []string
			for _, e := range c.Snapshot().Connections {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.kept, ids)
			assert.Len(t, restored.Edges, len(tt.kept))
			checkInvariants(t, c)
		})
	}
}

func TestSerialize(t *testing.T) {
	a := agentflow.NewAgent("audio-1", agentflow.KindAudio, agentflow.Position{X: 1, Y: 2})
	a.IsInputConnected = true
	a.SourceNodeID = "chat-1"
	doc := Serialize(agentflow.Workflow{
		Name:        "flow",
		Agents:      []agentflow.Agent{a},
		Connections: []agentflow.Connection{agentflow.NewConnection("chat-1", "audio-1")},
		LastResults: []agentflow.Output{textOutput("chat-1", "hi")},
	})

	assert.Equal(t, "flow", doc.Name)
	require.Len(t, doc.Agents, 1)
	assert.Equal(t, agentflow.DefaultSpeaker, doc.Agents[0].Speaker)
	require.NotNil(t, doc.Agents[0].Position)
	assert.Equal(t, agentflow.Position{X: 1, Y: 2}, *doc.Agents[0].Position)
	assert.Equal(t, "edge-chat-1-audio-1", doc.Connections[0].ID)
	assert.Len(t, doc.ExecutionResults, 1)
}
