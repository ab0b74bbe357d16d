package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/auth"
)

func sessionCtx() context.Context {
	return auth.WithSession(context.Background(), auth.Session{ID: "sess-1", UserID: "user-1"})
}

func TestClient_Execute(t *testing.T) {
	var gotReq agentflow.ExecutionRequest
	var gotSession, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/execute-workflow" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotSession = r.Header.Get(auth.HeaderSessionID)
		gotUser = r.Header.Get(auth.HeaderUserID)
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"outputs":[{"agent":"Agent chat-1","output_type":"text","output":"hi","timestamp":1.5}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client())
	res, err := c.Execute(sessionCtx(), &agentflow.ExecutionRequest{
		Agents:      []agentflow.RequestAgent{{ID: "chat-1", Kind: agentflow.KindChat, Name: "Chat Agent"}},
		Connections: []agentflow.Connection{},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "hi", res.Outputs[0].Output)
	assert.Equal(t, "sess-1", gotSession)
	assert.Equal(t, "user-1", gotUser)
	require.Len(t, gotReq.Agents, 1)
	assert.Equal(t, "chat-1", gotReq.Agents[0].ID)
}

func TestClient_ExecuteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Execute(sessionCtx(), &agentflow.ExecutionRequest{})
	var netErr *agentflow.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.Status)
	assert.Contains(t, err.Error(), "boom")
}

func TestClient_ExecuteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Execute(sessionCtx(), &agentflow.ExecutionRequest{})
	var netErr *agentflow.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.Status)
}

func TestClient_CreateRequiresUser(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Create(context.Background(), &agentflow.Document{Name: "x"})
	assert.ErrorIs(t, err, agentflow.ErrNotAuthenticated)
	assert.Zero(t, calls)
}

func TestClient_Create(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var doc agentflow.Document
		json.NewDecoder(r.Body).Decode(&doc)
		assert.Equal(t, "user-1", doc.UserID)
		doc.ID = "wf-1"
		json.NewEncoder(w).Encode(map[string]any{"data": doc})
	}))
	defer srv.Close()

	saved, err := NewClient(srv.URL, srv.Client()).Create(sessionCtx(), &agentflow.Document{Name: "mine"})
	require.NoError(t, err)
	assert.Equal(t, "wf-1", saved.ID)
	assert.Equal(t, "mine", saved.Name)
}

func TestClient_ListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
		bad  bool
	}{
		{name: "bare array", body: `[{"id":"a","name":"A"},{"id":"b","name":"B"}]`, want: 2},
		{name: "data envelope", body: `{"data":[{"id":"a","name":"A"}]}`, want: 1},
		{name: "empty envelope", body: `{"data":[]}`, want: 0},
		{name: "invalid", body: `{"workflows":[]}`, bad: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			docs, err := NewClient(srv.URL, srv.Client()).List(sessionCtx())
			if tt.bad {
				var malformed *agentflow.MalformedDataError
				assert.True(t, errors.As(err, &malformed), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}
}

func TestClient_GetAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/workflow/wf-1":
			io.WriteString(w, `{"id":"wf-1","name":"One","agents":[],"connections":[]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/workflow/wf-1":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, srv.Client())

	doc, err := c.Get(sessionCtx(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "One", doc.Name)

	_, err = c.Get(sessionCtx(), "nope")
	assert.ErrorIs(t, err, agentflow.ErrNotFound)

	assert.NoError(t, c.Delete(sessionCtx(), "wf-1"))
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL, srv.Client()).Ping(context.Background()))
}
