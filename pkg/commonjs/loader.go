// SPDX-License-Identifier: MPL-2.0

package commonjs

import (
	"log/slog"
)

type (
	// Loader runs the require protocol against one cache. A Loader is not safe
	// for concurrent use; independent sessions should use independent Loaders.
	Loader struct {
		delegate Delegate
		cache    Cache
		logger   *slog.Logger
	}

	// Option configures a Loader.
	Option func(*Loader)
)

// WithLogger sets the logger used for debug tracing of loads and evictions.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithCache makes the Loader use an existing cache instead of a fresh one.
func WithCache(cache Cache) Option {
	return func(l *Loader) {
		if cache != nil {
			l.cache = cache
		}
	}
}

// NewLoader creates a Loader with an empty cache.
func NewLoader(delegate Delegate, opts ...Option) *Loader {
	l := &Loader{
		delegate: delegate,
		cache:    make(Cache),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RequireMain loads entry into a new, empty cache and returns its exports.
func RequireMain(entry ResolvedPath, delegate Delegate, opts ...Option) (any, error) {
	return NewLoader(delegate, opts...).load(entry)
}

// Cache returns the Loader's cache.
func (l *Loader) Cache() Cache {
	return l.cache
}

// Delegate returns the delegate the Loader was created with.
func (l *Loader) Delegate() Delegate {
	return l.delegate
}

// Bind returns a require function that resolves identifiers relative to from.
// from does not need to be a cached module; hosts use it to require modules
// from a virtual location such as a REPL's working directory.
func (l *Loader) Bind(from ResolvedPath) *Require {
	return &Require{from: from, loader: l}
}

// Require returns the exports of the module at path, loading it if it is not
// cached.
func (l *Loader) Require(path ResolvedPath) (any, error) {
	if m, ok := l.cache[path]; ok {
		l.logger.Debug("module cache hit", "path", path, "loaded", m.Loaded)
		return m.Exports, nil
	}
	return l.load(path)
}

// load runs the full protocol for path. The module is registered before its
// code is read so that cycles terminate, and evicted again if Read or Run fail.
func (l *Loader) load(path ResolvedPath) (any, error) {
	m := &Module{ID: path, loader: l}
	if f, ok := l.delegate.(ExportsFactory); ok {
		m.Exports = f.NewExports(path)
	}
	if m.Exports == nil {
		m.Exports = Object{}
	}

	l.cache[path] = m
	l.logger.Debug("loading module", "path", path)

	env := m.environment()

	code, err := l.delegate.Read(path)
	if err != nil {
		l.evict(m, err)
		return nil, err
	}
	if err := l.delegate.Run(code, env, path); err != nil {
		l.evict(m, err)
		return nil, err
	}

	m.Loaded = true
	l.logger.Debug("loaded module", "path", path)
	return m.Exports, nil
}

// evict removes m from the cache unless the entry was already replaced by a
// newer load of the same path.
func (l *Loader) evict(m *Module, cause error) {
	if current, ok := l.cache[m.ID]; ok && current == m {
		delete(l.cache, m.ID)
	}
	l.logger.Debug("evicted module", "path", m.ID, "error", cause)
}
