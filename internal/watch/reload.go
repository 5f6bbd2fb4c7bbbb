// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"log/slog"

	"github.com/invowk/cjs/internal/dag"
	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/fspath"
)

type (
	// Reloader re-requires an entry module after some of the modules it
	// depends on changed. graph must be the one recorded while loader loaded
	// modules, so that dependents of a changed file can be found.
	Reloader struct {
		loader *commonjs.Loader
		graph  *dag.Graph
		entry  commonjs.ResolvedPath
		logger *slog.Logger
	}

	// ReloadResult describes one reload.
	ReloadResult struct {
		Exports any
		Evicted []commonjs.ResolvedPath
	}
)

// NewReloader creates a Reloader for entry. A nil logger discards.
func NewReloader(loader *commonjs.Loader, graph *dag.Graph, entry commonjs.ResolvedPath, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reloader{loader: loader, graph: graph, entry: entry, logger: logger}
}

// Invalidate evicts the cached modules for changed paths and every cached
// module that depends on them. A changed package.json can redirect any
// resolution, so it clears the whole cache.
func (r *Reloader) Invalidate(changed []commonjs.ResolvedPath) []commonjs.ResolvedPath {
	cache := r.loader.Cache()

	names := make([]string, 0, len(changed))
	for _, p := range changed {
		if fspath.Base(p) == "package.json" {
			return r.evict(cache, cache.Paths())
		}
		names = append(names, string(p))
	}

	var targets []commonjs.ResolvedPath
	for _, n := range r.graph.Dependents(names...) {
		targets = append(targets, commonjs.ResolvedPath(n))
	}
	return r.evict(cache, targets)
}

func (r *Reloader) evict(cache commonjs.Cache, paths []commonjs.ResolvedPath) []commonjs.ResolvedPath {
	var evicted []commonjs.ResolvedPath
	for _, p := range paths {
		if cache.Has(p) {
			cache.Delete(p)
			evicted = append(evicted, p)
		}
	}
	return evicted
}

// Reload invalidates changed and requires the entry again. The entry is
// served from the cache when none of its dependencies changed.
func (r *Reloader) Reload(changed []commonjs.ResolvedPath) (ReloadResult, error) {
	evicted := r.Invalidate(changed)
	r.logger.Debug("invalidated modules", "changed", len(changed), "evicted", len(evicted))

	exports, err := r.loader.Require(r.entry)
	if err != nil {
		return ReloadResult{Evicted: evicted}, err
	}
	return ReloadResult{Exports: exports, Evicted: evicted}, nil
}

// ModulePaths converts absolute OS paths reported by a Watcher into module
// paths.
func ModulePaths(changed []string) []commonjs.ResolvedPath {
	out := make([]commonjs.ResolvedPath, 0, len(changed))
	for _, p := range changed {
		out = append(out, fspath.FromOS(p))
	}
	return out
}
