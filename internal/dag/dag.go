// Package dag orders the agents of a canvas graph by their wiring.
package dag

import (
	"fmt"
	"sort"

	"github.com/soochol/agentflow/internal/agentflow"
)

type DAG struct {
	nodes     map[string]agentflow.Agent
	children  map[string][]string
	topoOrder []string
}

// Build indexes g and computes a dependency order. It fails on duplicate
// node ids, edges naming unknown nodes, and cycles.
func Build(g agentflow.Graph) (*DAG, error) {
	d := &DAG{
		nodes:    make(map[string]agentflow.Agent),
		children: make(map[string][]string),
	}

	for _, a := range g.Agents {
		if _, exists := d.nodes[a.ID]; exists {
			return nil, fmt.Errorf("duplicate node ID: %s", a.ID)
		}
		d.nodes[a.ID] = a
	}

	for _, c := range g.Connections {
		if _, ok := d.nodes[c.Source]; !ok {
			return nil, fmt.Errorf("connection references unknown node: %s", c.Source)
		}
		if _, ok := d.nodes[c.Target]; !ok {
			return nil, fmt.Errorf("connection references unknown node: %s", c.Target)
		}
		d.children[c.Source] = append(d.children[c.Source], c.Target)
	}

	order, err := d.topoSort()
	if err != nil {
		return nil, err
	}
	d.topoOrder = order
	return d, nil
}

func (d *DAG) topoSort() ([]string, error) {
	inDegree := make(map[string]int)
	for id := range d.nodes {
		inDegree[id] = 0
	}
	for _, children := range d.children {
		for _, c := range children {
			inDegree[c]++
		}
	}
	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)
	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, c := range d.children[node] {
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
		sort.Strings(queue)
	}
	if len(order) != len(d.nodes) {
		return nil, fmt.Errorf("cycle detected in workflow graph")
	}
	return order, nil
}

func (d *DAG) TopologicalOrder() []string { return d.topoOrder }

func (d *DAG) Node(id string) (agentflow.Agent, bool) {
	a, ok := d.nodes[id]
	return a, ok
}

// Reachable reports whether to can be reached from from by following
// connections downstream. A node always reaches itself.
func Reachable(conns []agentflow.Connection, from, to string) bool {
	if from == to {
		return true
	}
	children := make(map[string][]string)
	for _, c := range conns {
		children[c.Source] = append(children[c.Source], c.Target)
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range children[n] {
			if c == to {
				return true
			}
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}
