// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/fspath"
)

type (
	// Engine executes module bodies of one or more file types.
	Engine interface {
		// Name returns the engine name used in configuration and errors.
		Name() string
		// Extensions returns the lower-cased file extensions the engine runs.
		Extensions() []string
		// Run executes code as the module described by env.
		Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error
	}

	// Closer is implemented by engines holding resources beyond a run.
	Closer interface {
		Close(ctx context.Context) error
	}

	// Registry maps file extensions to engines. When two engines claim the same
	// extension the one registered last wins.
	Registry struct {
		engines []Engine
		byExt   map[string]Engine
	}
)

// NewRegistry creates a registry holding engines.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{byExt: make(map[string]Engine)}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

// Register adds e for each of its extensions.
func (r *Registry) Register(e Engine) {
	r.engines = append(r.engines, e)
	for _, ext := range e.Extensions() {
		r.byExt[ext] = e
	}
}

// Get returns the engine named name.
func (r *Registry) Get(name string) (Engine, error) {
	for _, e := range r.engines {
		if e.Name() == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("engine '%s' not registered", name)
}

// ForPath returns the engine for the extension of path.
func (r *Registry) ForPath(path commonjs.ResolvedPath) (Engine, error) {
	ext := fspath.Ext(path)
	if e, ok := r.byExt[ext]; ok {
		return e, nil
	}
	return nil, &UnsupportedError{Path: path, Ext: ext}
}

// Names returns the registered engine names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for _, e := range r.engines {
		names = append(names, e.Name())
	}
	return names
}

// Extensions returns every handled extension in lexical order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Close closes every engine implementing Closer and joins their errors.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, e := range r.engines {
		if c, ok := e.(Closer); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", e.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
