// SPDX-License-Identifier: MPL-2.0

// Package wasm loads WebAssembly modules with wazero. Every exported function
// of an instantiated module becomes a named export of type Func.
package wasm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/pkg/commonjs"
)

// Name is the engine name.
const Name = "wasm"

type (
	// Func calls an exported WebAssembly function. Arguments are converted to
	// the parameter types of the function. A function without results returns
	// nil, one result is returned as int64 or float64, and several results are
	// returned as []any.
	Func func(args ...float64) (any, error)

	// Engine compiles and instantiates WebAssembly modules in one runtime.
	// Instances stay alive until Close.
	Engine struct {
		ctx     context.Context
		runtime wazero.Runtime
		stdout  io.Writer
		stderr  io.Writer
		logger  *slog.Logger
	}

	// Option configures an Engine.
	Option func(*Engine)
)

// WithContext sets the context used for compilation and calls.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) { e.ctx = ctx }
}

// WithStdout sets the standard output of WASI modules.
func WithStdout(w io.Writer) Option {
	return func(e *Engine) { e.stdout = w }
}

// WithStderr sets the standard error of WASI modules.
func WithStderr(w io.Writer) Option {
	return func(e *Engine) { e.stderr = w }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a WebAssembly engine with WASI preview 1 host functions.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		ctx:    context.Background(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.runtime = wazero.NewRuntimeWithConfig(e.ctx, wazero.NewRuntimeConfig())
	if _, err := wasi_snapshot_preview1.Instantiate(e.ctx, e.runtime); err != nil {
		_ = e.runtime.Close(e.ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}
	return e, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Extensions implements engine.Engine.
func (e *Engine) Extensions() []string { return []string{".wasm"} }

// Close releases the runtime and every instantiated module.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Run implements engine.Engine. The module is instantiated anonymously, so
// the same path can be loaded again after its cache entry is deleted.
func (e *Engine) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	compiled, err := e.runtime.CompileModule(e.ctx, []byte(code))
	if err != nil {
		return &engine.ExecError{Engine: Name, Path: path, Err: fmt.Errorf("failed to compile module: %w", err)}
	}

	config := wazero.NewModuleConfig().
		WithName("").
		WithStdout(e.stdout).
		WithStderr(e.stderr).
		WithStartFunctions("_initialize")
	mod, err := e.runtime.InstantiateModule(e.ctx, compiled, config)
	if err != nil {
		return &engine.ExecError{Engine: Name, Path: path, Err: fmt.Errorf("failed to instantiate module: %w", err)}
	}

	obj, ok := env.Module.Exports.(commonjs.Object)
	if !ok {
		obj = commonjs.Object{}
		env.Module.Exports = obj
	}
	defs := compiled.ExportedFunctions()
	for _, name := range sortedKeys(defs) {
		if name == "_initialize" {
			continue
		}
		obj[name] = e.wrap(mod.ExportedFunction(name), defs[name])
	}
	e.logger.Debug("instantiated wasm module", "path", path, "exports", len(obj))
	return nil
}

func (e *Engine) wrap(fn api.Function, def api.FunctionDefinition) Func {
	params := def.ParamTypes()
	results := def.ResultTypes()
	return func(args ...float64) (any, error) {
		if len(args) != len(params) {
			return nil, fmt.Errorf("%s: expected %d arguments, got %d", def.Name(), len(params), len(args))
		}
		stack := make([]uint64, len(args))
		for i, a := range args {
			stack[i] = encode(params[i], a)
		}
		out, err := fn.Call(e.ctx, stack...)
		if err != nil {
			return nil, err
		}
		switch len(out) {
		case 0:
			return nil, nil
		case 1:
			return decode(results[0], out[0]), nil
		}
		values := make([]any, len(out))
		for i, v := range out {
			values[i] = decode(results[i], v)
		}
		return values, nil
	}
}

func encode(t api.ValueType, v float64) uint64 {
	switch t {
	case api.ValueTypeI32:
		return api.EncodeI32(int32(v))
	case api.ValueTypeI64:
		return api.EncodeI64(int64(v))
	case api.ValueTypeF32:
		return api.EncodeF32(float32(v))
	default:
		return api.EncodeF64(v)
	}
}

func decode(t api.ValueType, v uint64) any {
	switch t {
	case api.ValueTypeI32:
		return int64(api.DecodeI32(v))
	case api.ValueTypeI64:
		return int64(v)
	case api.ValueTypeF32:
		return float64(api.DecodeF32(v))
	default:
		return api.DecodeF64(v)
	}
}

func sortedKeys(m map[string]api.FunctionDefinition) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
