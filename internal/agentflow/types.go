package agentflow

import "strings"

// AgentKind identifies what an agent produces. The kind is fixed when the
// node is dropped on the canvas.
type AgentKind string

const (
	KindChat  AgentKind = "chat"
	KindImage AgentKind = "image"
	KindAudio AgentKind = "audio"
)

// DefaultSpeaker is the voice assigned to new audio agents.
const DefaultSpeaker = "mercury_jane@hopeful"

// Valid reports whether k is one of the known agent kinds.
func (k AgentKind) Valid() bool {
	switch k {
	case KindChat, KindImage, KindAudio:
		return true
	}
	return false
}

// DefaultName returns the display name given to a freshly dropped agent,
// e.g. "Chat Agent".
func (k AgentKind) DefaultName() string {
	s := string(k)
	if s == "" {
		return "Agent"
	}
	return strings.ToUpper(s[:1]) + s[1:] + " Agent"
}

// Position is the canvas coordinate of a node. It is carried for
// persistence only; the core never interprets it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// AudioSettings holds the fields only meaningful for audio agents.
type AudioSettings struct {
	Speaker string `json:"speaker"`
}

// Agent is one node of the workflow graph.
//
// IsInputConnected and SourceNodeID are derived from the edge list and are
// only ever written by the canvas controller. An empty SourceNodeID means
// the node has no upstream agent.
type Agent struct {
	ID               string         `json:"id"`
	Kind             AgentKind      `json:"type"`
	Name             string         `json:"name"`
	Input            string         `json:"input"`
	Description      string         `json:"description"`
	Audio            *AudioSettings `json:"audio,omitempty"`
	IsInputConnected bool           `json:"isInputConnected"`
	SourceNodeID     string         `json:"sourceNodeId,omitempty"`
	Position         Position       `json:"position"`
}

// NewAgent returns an agent of the given kind with default fields.
func NewAgent(id string, kind AgentKind, pos Position) Agent {
	a := Agent{
		ID:       id,
		Kind:     kind,
		Name:     kind.DefaultName(),
		Position: pos,
	}
	if kind == KindAudio {
		a.Audio = &AudioSettings{Speaker: DefaultSpeaker}
	}
	return a
}

// Speaker returns the configured voice of an audio agent, or "" for the
// other kinds.
func (a Agent) Speaker() string {
	if a.Kind != KindAudio {
		return ""
	}
	if a.Audio == nil || a.Audio.Speaker == "" {
		return DefaultSpeaker
	}
	return a.Audio.Speaker
}

// Clone returns a deep copy of a.
func (a Agent) Clone() Agent {
	if a.Audio != nil {
		audio := *a.Audio
		a.Audio = &audio
	}
	return a
}

// ResetInput puts the agent back into the disconnected state.
func (a *Agent) ResetInput() {
	a.IsInputConnected = false
	a.SourceNodeID = ""
	a.Input = ""
}

// Graph is a point-in-time copy of the canvas: every agent plus the edge
// list.
type Graph struct {
	Agents      []Agent      `json:"agents"`
	Connections []Connection `json:"connections"`
}

// Agent returns the agent with the given id from the snapshot.
func (g Graph) Agent(id string) (Agent, bool) {
	for _, a := range g.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// IncomingEdge returns the connection targeting id, if any.
func (g Graph) IncomingEdge(id string) (Connection, bool) {
	for _, c := range g.Connections {
		if c.Target == id {
			return c, true
		}
	}
	return Connection{}, false
}

// Workflow is a named graph with the results of its last run.
type Workflow struct {
	Name        string       `json:"name"`
	Agents      []Agent      `json:"agents"`
	Connections []Connection `json:"connections"`
	LastResults []Output     `json:"lastResults,omitempty"`
}
