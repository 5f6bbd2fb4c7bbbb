// SPDX-License-Identifier: MPL-2.0

package delegate

import (
	"slices"

	"github.com/invowk/cjs/internal/dag"
	"github.com/invowk/cjs/pkg/commonjs"
)

// Recorder wraps a delegate and records the module graph it serves: an edge
// for every successful resolution and the order in which modules finished
// running.
type Recorder struct {
	commonjs.Delegate
	graph *dag.Graph
	order []commonjs.ResolvedPath
}

// Recording wraps d, recording into g.
func Recording(d commonjs.Delegate, g *dag.Graph) *Recorder {
	return &Recorder{Delegate: d, graph: g}
}

// Graph returns the graph being recorded into.
func (r *Recorder) Graph() *dag.Graph { return r.graph }

// Order returns the modules that ran successfully, in completion order.
// Dependencies therefore come before their dependents, except where a cycle
// let a dependent observe a partial module.
func (r *Recorder) Order() []commonjs.ResolvedPath {
	return slices.Clone(r.order)
}

// Resolve records from -> resolved on success.
func (r *Recorder) Resolve(id commonjs.UnresolvedPath, from commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	resolved, err := r.Delegate.Resolve(id, from)
	if err != nil {
		return "", err
	}
	r.graph.AddEdge(string(from), string(resolved))
	return resolved, nil
}

// Read records path as a node before delegating.
func (r *Recorder) Read(path commonjs.ResolvedPath) (commonjs.Code, error) {
	r.graph.AddNode(string(path))
	return r.Delegate.Read(path)
}

// Run records path in the completion order on success.
func (r *Recorder) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	if err := r.Delegate.Run(code, env, path); err != nil {
		return err
	}
	r.order = append(r.order, path)
	return nil
}

// NewExports forwards to the wrapped delegate when it is an ExportsFactory.
func (r *Recorder) NewExports(path commonjs.ResolvedPath) any {
	if f, ok := r.Delegate.(commonjs.ExportsFactory); ok {
		return f.NewExports(path)
	}
	return nil
}
