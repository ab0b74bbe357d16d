package services

import (
	"sync"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/agentflow/ports"
	"github.com/soochol/agentflow/internal/events"
	"github.com/soochol/agentflow/internal/graph"
)

// Workspace is one user's canvas with everything wired around it. It is
// built explicitly and owned by whoever assembles the application.
type Workspace struct {
	Bus          *events.Bus
	Store        *graph.Store
	Results      *ResultCache
	Canvas       *CanvasController
	Orchestrator *ExecutionOrchestrator
	Persistence  *PersistenceAdapter
}

// NewWorkspace assembles a workspace around an executor and document
// store. All components share one event bus.
func NewWorkspace(executor ports.Executor, docs ports.DocumentStore) *Workspace {
	bus := events.NewBus()
	store := graph.New(bus)
	results := NewResultCache()
	canvas := NewCanvasController(store, results, agentflow.NewNodeIDs(nil), bus)
	return &Workspace{
		Bus:          bus,
		Store:        store,
		Results:      results,
		Canvas:       canvas,
		Orchestrator: NewExecutionOrchestrator(canvas, results, executor, bus),
		Persistence:  NewPersistenceAdapter(canvas, results, docs),
	}
}

// WorkspaceManager hands out one workspace per session key.
type WorkspaceManager struct {
	mu       sync.Mutex
	spaces   map[string]*Workspace
	executor ports.Executor
	docs     ports.DocumentStore
	onCreate []func(key string, ws *Workspace)
}

func NewWorkspaceManager(executor ports.Executor, docs ports.DocumentStore) *WorkspaceManager {
	return &WorkspaceManager{
		spaces:   make(map[string]*Workspace),
		executor: executor,
		docs:     docs,
	}
}

// OnCreate registers a hook run for every new workspace, e.g. to attach an
// event forwarder.
func (m *WorkspaceManager) OnCreate(fn func(key string, ws *Workspace)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = append(m.onCreate, fn)
}

// Get returns the workspace for key, creating it on first use.
func (m *WorkspaceManager) Get(key string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ws, ok := m.spaces[key]; ok {
		return ws
	}
	ws := NewWorkspace(m.executor, m.docs)
	m.spaces[key] = ws
	for _, fn := range m.onCreate {
		fn(key, ws)
	}
	return ws
}

// Len returns the number of live workspaces.
func (m *WorkspaceManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spaces)
}

// Drop forgets the workspace for key.
func (m *WorkspaceManager) Drop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces, key)
}
