// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/invowk/cjs/internal/config"
	"github.com/invowk/cjs/internal/delegate"
	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/internal/engine/data"
	"github.com/invowk/cjs/internal/engine/js"
	"github.com/invowk/cjs/internal/engine/lua"
	"github.com/invowk/cjs/internal/engine/shell"
	"github.com/invowk/cjs/internal/engine/wasm"
	"github.com/invowk/cjs/internal/issue"
	"github.com/invowk/cjs/internal/source"
	"github.com/invowk/cjs/pkg/bundle"
	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/fspath"
)

// cliModuleName is the virtual module that identifiers typed on the command
// line are resolved from.
const cliModuleName = "[cjs]"

type (
	// sessionOptions selects where modules come from.
	sessionOptions struct {
		bundlePath string
	}

	// session is everything needed to load modules for one command.
	session struct {
		cfg      *config.Config
		logger   *slog.Logger
		source   *source.Source
		engines  *engine.Registry
		delegate *delegate.Composite
		// root is the directory command-line identifiers are relative to.
		root   commonjs.ResolvedPath
		bundle *bundle.Bundle
	}
)

// openSession loads configuration and assembles the source, engines and
// delegate. Callers must Close the session.
func (a *App) openSession(ctx context.Context, flags *rootFlags, opts sessionOptions) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	logger := a.newLogger(cfg, flags)

	s := &session{cfg: cfg, logger: logger}

	var lookup source.Lookup
	searchPaths := make([]commonjs.ResolvedPath, 0, len(cfg.SearchPaths))
	if opts.bundlePath != "" {
		b, err := bundle.Open(ctx, opts.bundlePath)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("open bundle").
				WithResource(opts.bundlePath).
				WithIssue(issue.BundleFailedId).
				WithSuggestion("create one with 'cjs bundle <dir> -o <file>'").
				Wrap(err).
				BuildError()
		}
		s.bundle = b
		lookup = b
		s.root = "/"
		for _, p := range cfg.SearchPaths {
			searchPaths = append(searchPaths, fspath.Clean(commonjs.ResolvedPath("/"+strings.TrimPrefix(filepath.ToSlash(p), "/"))))
		}
	} else {
		root, err := fspath.Abs(".")
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		s.root = root
		lookup = source.NewOSFS()
		for _, p := range cfg.SearchPaths {
			abs, err := fspath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("search path %q: %w", p, err)
			}
			searchPaths = append(searchPaths, abs)
		}
	}

	s.source = source.New(lookup, source.Options{
		Extensions:  cfg.ExtensionStrings(),
		ModuleDirs:  cfg.ModuleDirStrings(),
		SearchPaths: searchPaths,
	})

	engines, err := a.buildEngines(ctx, cfg, logger)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	s.engines = engines
	s.delegate = delegate.New(s.source, engines, delegate.WithLogger(logger))

	logger.Debug("session ready", "root", s.root, "engines", engines.Names(), "bundle", opts.bundlePath)
	return s, nil
}

// buildEngines registers every engine that the configuration does not
// disable.
func (a *App) buildEngines(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Registry, error) {
	reg := engine.NewRegistry()
	for _, name := range config.KnownEngines {
		if !cfg.EngineEnabled(name) {
			logger.Debug("engine disabled", "engine", name)
			continue
		}
		switch name {
		case config.EngineJS:
			reg.Register(js.New(js.WithStdout(a.stdout), js.WithStderr(a.stderr), js.WithLogger(logger)))
		case config.EngineLua:
			reg.Register(lua.New(lua.WithStdout(a.stdout), lua.WithLogger(logger)))
		case config.EngineShell:
			reg.Register(shell.New(
				shell.WithContext(ctx),
				shell.WithStdout(a.stdout),
				shell.WithStderr(a.stderr),
				shell.WithInheritEnv(cfg.Shell.InheritEnv),
				shell.WithLogger(logger),
			))
		case config.EngineWasm:
			e, err := wasm.New(
				wasm.WithContext(ctx),
				wasm.WithStdout(a.stdout),
				wasm.WithStderr(a.stderr),
				wasm.WithLogger(logger),
			)
			if err != nil {
				_ = reg.Close(ctx)
				return nil, fmt.Errorf("start wasm engine: %w", err)
			}
			reg.Register(e)
		case config.EngineData:
			reg.Register(data.New())
		}
	}
	return reg, nil
}

// Close releases engines and the bundle database.
func (s *session) Close(ctx context.Context) error {
	var errs []error
	if s.engines != nil {
		errs = append(errs, s.engines.Close(ctx))
	}
	if s.bundle != nil {
		errs = append(errs, s.bundle.Close())
	}
	return errors.Join(errs...)
}

// from is the virtual requester for command-line identifiers.
func (s *session) from() commonjs.ResolvedPath {
	return fspath.Join(s.root, cliModuleName)
}

// resolve maps a require-style identifier typed by the user.
func (s *session) resolve(id string) (commonjs.ResolvedPath, error) {
	return s.source.Resolve(commonjs.UnresolvedPath(id), s.from())
}

// resolveEntry maps a file argument, so "main.js" means "./main.js".
func (s *session) resolveEntry(arg string) (commonjs.ResolvedPath, error) {
	if s.bundle == nil && filepath.IsAbs(arg) {
		return s.source.Resolve(commonjs.UnresolvedPath(fspath.FromOS(arg)), s.from())
	}
	id := filepath.ToSlash(arg)
	if !strings.HasPrefix(id, "/") && !strings.HasPrefix(id, "./") && !strings.HasPrefix(id, "../") && id != "." && id != ".." {
		id = "./" + id
	}
	return s.source.Resolve(commonjs.UnresolvedPath(id), s.from())
}
