// Package preview renders a canvas graph as the YAML task configuration
// shown to users before a run.
package preview

import (
	"bytes"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/dag"
)

const taskDescription = "Task workflow configuration"

// AgentConfig is the execution tuning block of an agent.
type AgentConfig struct {
	BackoffStrategy string `yaml:"backoff_strategy"`
	Memory          string `yaml:"memory"`
}

// AgentYAML is the per-agent configuration document.
type AgentYAML struct {
	Name         string      `yaml:"name"`
	Tools        []string    `yaml:"tools"`
	AllowedToUse []string    `yaml:"allowed_to_use"`
	Constraints  []string    `yaml:"constraints"`
	Config       AgentConfig `yaml:"config"`
}

type TaskAgent struct {
	Name string `yaml:"name"`
}

// TaskStep is one step of the linear task workflow.
type TaskStep struct {
	Step      int      `yaml:"step"`
	Agent     string   `yaml:"agent"`
	DependsOn []string `yaml:"depends_on"`
}

// TaskYAML describes the whole workflow as ordered steps, each depending on
// the one before it.
type TaskYAML struct {
	Description string      `yaml:"description"`
	Agents      []TaskAgent `yaml:"agents"`
	Workflow    []TaskStep  `yaml:"workflow"`
}

// NewAgentYAML returns the configuration document for one agent with the
// default tuning.
func NewAgentYAML(name string) AgentYAML {
	return AgentYAML{
		Name:         name,
		Tools:        []string{},
		AllowedToUse: []string{},
		Constraints:  []string{},
		Config:       AgentConfig{BackoffStrategy: "exponential", Memory: "none"},
	}
}

// NewTaskYAML builds the task document for agents in the given order.
func NewTaskYAML(names []string) TaskYAML {
	t := TaskYAML{
		Description: taskDescription,
		Agents:      make([]TaskAgent, len(names)),
		Workflow:    make([]TaskStep, len(names)),
	}
	for i, name := range names {
		t.Agents[i] = TaskAgent{Name: name}
		deps := []string{}
		if i > 0 {
			deps = []string{names[i-1]}
		}
		t.Workflow[i] = TaskStep{Step: i + 1, Agent: name, DependsOn: deps}
	}
	return t
}

// Render encodes g as a multi-document YAML stream: the task document
// first, then one configuration document per agent. Agents appear in
// dependency order; a graph that does not form a DAG falls back to the
// order of g.Agents.
func Render(g agentflow.Graph) ([]byte, error) {
	agents := g.Agents
	if d, err := dag.Build(g); err == nil {
		agents = agents[:0:0]
		for _, id := range d.TopologicalOrder() {
			a, _ := d.Node(id)
			agents = append(agents, a)
		}
	} else {
		slog.Warn("preview: graph order unavailable", "err", err)
	}

	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(NewTaskYAML(names)); err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	for _, name := range names {
		if err := enc.Encode(NewAgentYAML(name)); err != nil {
			return nil, fmt.Errorf("encode agent %q: %w", name, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
