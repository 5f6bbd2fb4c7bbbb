// SPDX-License-Identifier: MPL-2.0

// Package dag records module dependency graphs. An edge from A to B means
// module A required module B. Cycles are legal for the loader, so besides
// topological ordering the graph can list the cycles it contains.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError is returned by TopologicalSort when the graph has a cycle.
	CycleError struct {
		// Cycle holds the nodes left unordered, in insertion order.
		Cycle []string
	}

	// Edge is a directed edge.
	Edge struct {
		From string
		To   string
	}

	// Graph is a directed graph keyed by string. Nodes and edges keep their
	// insertion order so output is deterministic. Duplicate edges are ignored.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		nodeSet   map[string]bool
		edges     []Edge
		edgeSet   map[Edge]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
		edgeSet:   make(map[Edge]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds the edge from -> to, adding missing nodes.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	e := Edge{From: from, To: to}
	if g.edgeSet[e] {
		return
	}
	g.edgeSet[e] = true
	g.edges = append(g.edges, e)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	return g.nodeSet[name]
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Dependencies returns the direct successors of name.
func (g *Graph) Dependencies(name string) []string {
	return slices.Clone(g.adjacency[name])
}

// Dependents returns every node that reaches one of names through one or
// more edges, plus the names themselves that are nodes. The result is in
// insertion order.
func (g *Graph) Dependents(names ...string) []string {
	reverse := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		reverse[e.To] = append(reverse[e.To], e.From)
	}

	seen := make(map[string]bool)
	queue := make([]string, 0, len(names))
	for _, n := range names {
		if g.nodeSet[n] && !seen[n] {
			seen[n] = true
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, from := range reverse[n] {
			if !seen[from] {
				seen[from] = true
				queue = append(queue, from)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, n := range g.nodes {
		if seen[n] {
			out = append(out, n)
		}
	}
	return out
}

// TopologicalSort orders the nodes so that every edge points forward, using
// Kahn's algorithm. Nodes at the same level keep insertion order. A graph
// with a cycle yields a *CycleError.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		inDegree[e.To]++
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, next := range g.adjacency[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}
	return result, nil
}

// Cycles returns every strongly connected component that contains a cycle:
// components with more than one node, and single nodes with a self-edge.
// Components are ordered by their earliest node and list nodes in insertion
// order.
func (g *Graph) Cycles() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int, len(g.nodes)),
		lowlink: make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
	}
	for _, node := range g.nodes {
		if _, seen := t.index[node]; !seen {
			t.connect(node)
		}
	}

	order := make(map[string]int, len(g.nodes))
	for i, node := range g.nodes {
		order[node] = i
	}
	byInsertion := func(a, b string) int { return order[a] - order[b] }

	var cycles [][]string
	for _, comp := range t.components {
		if len(comp) == 1 && !g.edgeSet[Edge{From: comp[0], To: comp[0]}] {
			continue
		}
		slices.SortFunc(comp, byInsertion)
		cycles = append(cycles, comp)
	}
	slices.SortFunc(cycles, func(a, b []string) int { return byInsertion(a[0], b[0]) })
	return cycles
}

// tarjan holds the state of Tarjan's strongly connected components search.
type tarjan struct {
	g          *Graph
	next       int
	index      map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) connect(v string) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.adjacency[v] {
		if _, seen := t.index[w]; !seen {
			t.connect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var comp []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		comp = append(comp, w)
		if w == v {
			break
		}
	}
	t.components = append(t.components, comp)
}
