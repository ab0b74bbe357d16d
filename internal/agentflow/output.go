package agentflow

import (
	"strings"
	"time"
)

// OutputType is the payload kind of one executed agent.
type OutputType string

const (
	OutputText  OutputType = "text"
	OutputImage OutputType = "image"
	OutputAudio OutputType = "audio"
)

// Output is the result of one executed agent as returned by the execution
// service. Agent is a human readable label that contains the node id;
// AgentID is the exact correlation key when the service sends one.
type Output struct {
	Agent      string     `json:"agent"`
	AgentID    string     `json:"agent_id,omitempty"`
	Task       string     `json:"task,omitempty"`
	OutputType OutputType `json:"output_type"`
	Output     string     `json:"output"`
	ImageData  string     `json:"image_data,omitempty"`
	AudioURL   string     `json:"audio_url,omitempty"`
	Timestamp  float64    `json:"timestamp"`
}

// ExecutionResult is the execution service response.
type ExecutionResult struct {
	Success bool     `json:"success"`
	Outputs []Output `json:"outputs"`
}

// Clone returns a deep copy of r.
func (r *ExecutionResult) Clone() *ExecutionResult {
	if r == nil {
		return nil
	}
	out := &ExecutionResult{Success: r.Success}
	if r.Outputs != nil {
		out.Outputs = append([]Output(nil), r.Outputs...)
	}
	return out
}

// RunState is what the presentation layer shows next to the canvas.
type RunState struct {
	Loading bool             `json:"loading"`
	Result  *ExecutionResult `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ExecutionRequest is the document sent to the execution service.
type ExecutionRequest struct {
	Agents      []RequestAgent `json:"agents"`
	Connections []Connection   `json:"connections"`
}

// RequestAgent is the per-node entry of an ExecutionRequest.
type RequestAgent struct {
	ID           string    `json:"id"`
	Kind         AgentKind `json:"type"`
	Name         string    `json:"name"`
	Input        string    `json:"input"`
	Description  string    `json:"description"`
	Speaker      string    `json:"speaker,omitempty"`
	IsConnected  bool      `json:"isConnected"`
	SourceNodeID string    `json:"sourceNodeId,omitempty"`
}

// MatchOutput finds the output produced by nodeID.
//
// The execution service is asked for an exact agent_id; older services only
// send a label containing the node id, so the lookup falls back to an exact
// label match and then to case-insensitive containment. When several node
// ids are contained in one label, the label belongs to the longest of them,
// which keeps "chat-1" from claiming the output of "chat-12". candidates is
// the full set of node ids on the canvas; nil means only nodeID is known.
func MatchOutput(outputs []Output, nodeID string, candidates []string) (Output, bool) {
	for _, o := range outputs {
		if o.AgentID != "" && o.AgentID == nodeID {
			return o, true
		}
	}
	for _, o := range outputs {
		if o.AgentID == "" && strings.EqualFold(o.Agent, nodeID) {
			return o, true
		}
	}
	if len(candidates) == 0 {
		candidates = []string{nodeID}
	}
	needle := strings.ToLower(nodeID)
	for _, o := range outputs {
		if o.AgentID != "" {
			continue
		}
		label := strings.ToLower(o.Agent)
		if !strings.Contains(label, needle) {
			continue
		}
		if ownerOf(label, candidates) == needle {
			return o, true
		}
	}
	return Output{}, false
}

func ownerOf(label string, candidates []string) string {
	owner := ""
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if len(lc) > len(owner) && strings.Contains(label, lc) {
			owner = lc
		}
	}
	return owner
}

// TextOutput returns the text produced by nodeID, or "" when the node has
// no text output in outputs.
func TextOutput(outputs []Output, nodeID string, candidates []string) string {
	o, ok := MatchOutput(outputs, nodeID, candidates)
	if !ok || o.OutputType != OutputText {
		return ""
	}
	return o.Output
}

// Document is a stored workflow as exchanged with the persistence service.
type Document struct {
	ID               string          `json:"id,omitempty"`
	Name             string          `json:"name"`
	Agents           []DocumentAgent `json:"agents"`
	Connections      []Connection    `json:"connections"`
	ExecutionResults []Output        `json:"executionResults,omitempty"`
	UserID           string          `json:"userId,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DocumentAgent is an agent as persisted. Derived connection state is
// never stored.
type DocumentAgent struct {
	ID          string    `json:"id"`
	Kind        AgentKind `json:"type"`
	Name        string    `json:"name"`
	Input       string    `json:"input"`
	Description string    `json:"description"`
	Speaker     string    `json:"speaker,omitempty"`
	Position    *Position `json:"position,omitempty"`
}
