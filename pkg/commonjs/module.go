// SPDX-License-Identifier: MPL-2.0

package commonjs

import (
	"slices"
)

type (
	// Module is one loaded unit. It is owned by the cache of the Loader that
	// created it.
	Module struct {
		// ID is the resolved path the module was loaded from. It never changes.
		ID ResolvedPath
		// Exports is the value handed to requirers. Executing code may mutate
		// the initial value or replace it wholesale.
		Exports any
		// Loaded reports whether the module's code finished running.
		Loaded bool

		loader *Loader
	}

	// Cache maps resolved paths to modules that are either loaded or currently
	// executing. It is shared by reference: deleting an entry forces the next
	// require of that path to read and run the module again.
	Cache map[ResolvedPath]*Module

	// Environment is the set of bindings exposed to a module body while it runs.
	Environment struct {
		Module *Module
		// Exports is the module's exports value at the time the environment was
		// built. It is not updated if the module replaces Module.Exports.
		Exports  any
		Require  *Require
		Filename ResolvedPath
		Dirname  ResolvedPath
	}
)

// Get returns the module cached for path.
func (c Cache) Get(path ResolvedPath) (*Module, bool) {
	m, ok := c[path]
	return m, ok
}

// Has reports whether path is cached.
func (c Cache) Has(path ResolvedPath) bool {
	_, ok := c[path]
	return ok
}

// Delete evicts path so that the next require reloads it.
func (c Cache) Delete(path ResolvedPath) {
	delete(c, path)
}

// Paths returns the cached paths in lexical order.
func (c Cache) Paths() []ResolvedPath {
	paths := make([]ResolvedPath, 0, len(c))
	for p := range c {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Require returns the require binding for this module.
func (m *Module) Require() *Require {
	return m.loader.Bind(m.ID)
}

// environment builds the bindings for one run of the module.
func (m *Module) environment() *Environment {
	return &Environment{
		Module:   m,
		Exports:  m.Exports,
		Require:  m.Require(),
		Filename: m.ID,
		Dirname:  Dirname(m.ID),
	}
}
