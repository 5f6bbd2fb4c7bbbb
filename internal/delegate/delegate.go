// SPDX-License-Identifier: MPL-2.0

// Package delegate composes a module source and a set of execution engines
// into a commonjs.Delegate.
package delegate

import (
	"log/slog"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/pkg/commonjs"
)

type (
	// Source resolves identifiers and reads module bodies.
	Source interface {
		Resolve(id commonjs.UnresolvedPath, from commonjs.ResolvedPath) (commonjs.ResolvedPath, error)
		Read(path commonjs.ResolvedPath) (commonjs.Code, error)
	}

	// Composite resolves and reads through a Source and runs each module with
	// the engine registered for its file extension.
	Composite struct {
		source  Source
		engines *engine.Registry
		logger  *slog.Logger
	}

	// Option configures a Composite.
	Option func(*Composite)
)

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composite) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Composite.
func New(src Source, engines *engine.Registry, opts ...Option) *Composite {
	c := &Composite{
		source:  src,
		engines: engines,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the underlying source.
func (c *Composite) Source() Source { return c.source }

// Engines returns the engine registry.
func (c *Composite) Engines() *engine.Registry { return c.engines }

// Resolve implements commonjs.Delegate.
func (c *Composite) Resolve(id commonjs.UnresolvedPath, from commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	return c.source.Resolve(id, from)
}

// Read implements commonjs.Delegate.
func (c *Composite) Read(path commonjs.ResolvedPath) (commonjs.Code, error) {
	return c.source.Read(path)
}

// Run implements commonjs.Delegate. Paths without a registered engine fail
// with *engine.UnsupportedError.
func (c *Composite) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	e, err := c.engines.ForPath(path)
	if err != nil {
		return err
	}
	c.logger.Debug("running module", "path", path, "engine", e.Name())
	return e.Run(code, env, path)
}

// NewExports implements commonjs.ExportsFactory. It returns nil, leaving the
// loader's default, when the engine has no native exports value.
func (c *Composite) NewExports(path commonjs.ResolvedPath) any {
	e, err := c.engines.ForPath(path)
	if err != nil {
		return nil
	}
	if f, ok := e.(commonjs.ExportsFactory); ok {
		return f.NewExports(path)
	}
	return nil
}
