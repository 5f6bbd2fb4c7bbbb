// SPDX-License-Identifier: MPL-2.0

// Package shell runs POSIX shell modules with the mvdan.cc/sh interpreter.
//
// Scripts see __filename and __dirname in their environment and can call the
// require builtin:
//
//	eval "$(require ./config)"   # imports string exports as variables
//	path=$(require -r ./config)   # prints the resolved path
//
// Variables the script exports become the module's named exports once the
// script exits with status zero.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/pkg/commonjs"
)

const (
	// Name is the engine name.
	Name = "shell"

	// reservedPrefix marks variables used to configure the host.
	reservedPrefix = "CJS_"
)

// reservedVars are maintained by the interpreter and never exported.
var reservedVars = []string{
	"PWD", "OLDPWD", "HOME", "IFS", "OPTIND", "UID", "EUID", "GID", "PPID", "SHELL", "PATH",
}

type (
	// Engine runs shell modules. Each module runs in a fresh interpreter.
	Engine struct {
		ctx        context.Context
		stdout     io.Writer
		stderr     io.Writer
		inheritEnv bool
		logger     *slog.Logger
	}

	// Option configures an Engine.
	Option func(*Engine)

	// run is the state of one module execution.
	run struct {
		env *commonjs.Environment
		// requireErr is the first failed require; it aborts the script and is
		// returned in place of the exit status.
		requireErr error
	}
)

// WithContext sets the context scripts run under.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) { e.ctx = ctx }
}

// WithStdout sets the scripts' standard output.
func WithStdout(w io.Writer) Option {
	return func(e *Engine) { e.stdout = w }
}

// WithStderr sets the scripts' standard error.
func WithStderr(w io.Writer) Option {
	return func(e *Engine) { e.stderr = w }
}

// WithInheritEnv passes the host process environment to scripts.
func WithInheritEnv(inherit bool) Option {
	return func(e *Engine) { e.inheritEnv = inherit }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a shell engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		ctx:    context.Background(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Extensions implements engine.Engine.
func (e *Engine) Extensions() []string { return []string{".sh"} }

// Run implements engine.Engine.
func (e *Engine) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(string(code)), string(path))
	if err != nil {
		return &engine.ExecError{Engine: Name, Path: path, Err: fmt.Errorf("failed to parse script: %w", err)}
	}

	initial := e.environ(env)
	state := &run{env: env}
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(initial...)),
		interp.StdIO(nil, e.stdout, e.stderr),
		interp.ExecHandlers(state.execHandler),
	)
	if err != nil {
		return &engine.ExecError{Engine: Name, Path: path, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	err = runner.Run(e.ctx, prog)
	if state.requireErr != nil {
		return state.requireErr
	}
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			e.logger.Debug("shell module exited", "path", path, "status", int(exitStatus))
		}
		return &engine.ExecError{Engine: Name, Path: path, Err: err}
	}

	collectExports(env.Module, runner.Vars, initial)
	return nil
}

// environ builds the initial environment as NAME=value pairs.
func (e *Engine) environ(env *commonjs.Environment) []string {
	var vars []string
	if e.inheritEnv {
		vars = slices.Clone(os.Environ())
	}
	return append(vars,
		"__filename="+string(env.Filename),
		"__dirname="+string(env.Dirname),
	)
}

// execHandler implements the require builtin and forwards everything else.
func (s *run) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 || args[0] != "require" {
			return next(ctx, args)
		}
		hc := interp.HandlerCtx(ctx)

		resolveOnly := false
		ids := args[1:]
		if len(ids) > 0 && ids[0] == "-r" {
			resolveOnly = true
			ids = ids[1:]
		}
		if len(ids) != 1 {
			_, _ = fmt.Fprintln(hc.Stderr, "usage: require [-r] <id>")
			return interp.NewExitStatus(2)
		}
		id := commonjs.UnresolvedPath(ids[0])

		if resolveOnly {
			path, err := s.env.Require.Resolve(id)
			if err != nil {
				return s.fail(err)
			}
			_, err = fmt.Fprintln(hc.Stdout, path)
			return err
		}

		exports, err := s.env.Require.Call(id)
		if err != nil {
			return s.fail(err)
		}
		return writeExports(hc.Stdout, exports)
	}
}

func (s *run) fail(err error) error {
	if s.requireErr == nil {
		s.requireErr = err
	}
	return err
}

// collectExports copies variables the script exported or changed into the
// module's exports.
func collectExports(m *commonjs.Module, vars map[string]expand.Variable, initial []string) {
	before := make(map[string]string, len(initial))
	for _, kv := range initial {
		if name, value, ok := strings.Cut(kv, "="); ok {
			before[name] = value
		}
	}

	obj, ok := m.Exports.(commonjs.Object)
	if !ok {
		obj = commonjs.Object{}
		m.Exports = obj
	}
	for name, v := range vars {
		if !v.Exported || !v.IsSet() || v.Kind != expand.String {
			continue
		}
		if slices.Contains(reservedVars, name) || strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		if prev, ok := before[name]; ok && prev == v.Str {
			continue
		}
		obj[name] = v.Str
	}
}
