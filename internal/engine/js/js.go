// SPDX-License-Identifier: MPL-2.0

// Package js runs CommonJS modules written in JavaScript on the goja runtime.
//
// A module body is wrapped in the classic function
//
//	(function (exports, require, module, __filename, __dirname) { ... })
//
// and called with the loader's environment. module.exports is a live view of
// the loader's Module.Exports, so assigning it replaces the module's exports.
package js

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/pkg/commonjs"
)

const (
	// Name is the engine name.
	Name = "js"

	wrapperHead = "(function (exports, require, module, __filename, __dirname) {"
	wrapperTail = "\n})"
)

type (
	// Engine runs JavaScript modules. All modules share one goja runtime, so
	// exports objects can be passed between them without conversion. An
	// Engine is not safe for concurrent use.
	Engine struct {
		vm     *goja.Runtime
		logger *slog.Logger
	}

	// Option configures an Engine.
	Option func(*options)

	options struct {
		stdout  io.Writer
		stderr  io.Writer
		logger  *slog.Logger
		globals map[string]any
	}

	printer struct {
		stdout io.Writer
		stderr io.Writer
	}
)

// WithStdout sets where console.log writes.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithStderr sets where console.warn and console.error write.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGlobal defines a global variable visible to every module.
func WithGlobal(name string, value any) Option {
	return func(o *options) {
		if o.globals == nil {
			o.globals = make(map[string]any)
		}
		o.globals[name] = value
	}
}

// New creates a JavaScript engine with a fresh runtime.
func New(opts ...Option) *Engine {
	o := options{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&printer{stdout: o.stdout, stderr: o.stderr}))
	registry.Enable(vm)
	console.Enable(vm)
	// The loader supplies require per module; drop the registry's global one.
	_ = vm.GlobalObject().Delete("require")
	for name, value := range o.globals {
		_ = vm.Set(name, value)
	}

	return &Engine{vm: vm, logger: o.logger}
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Extensions implements engine.Engine.
func (e *Engine) Extensions() []string { return []string{".js", ".cjs"} }

// Runtime returns the underlying goja runtime.
func (e *Engine) Runtime() *goja.Runtime { return e.vm }

// NewExports returns a fresh JavaScript object so that exports and
// module.exports are the same value inside the runtime.
func (e *Engine) NewExports(commonjs.ResolvedPath) any {
	return e.vm.NewObject()
}

// Run implements engine.Engine.
func (e *Engine) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	wrapped, err := e.vm.RunScript(string(path), wrapperHead+stripShebang(string(code))+wrapperTail)
	if err != nil {
		return e.unwrap(path, err)
	}
	fn, ok := goja.AssertFunction(wrapped)
	if !ok {
		return &engine.ExecError{Engine: Name, Path: path, Err: errors.New("module wrapper is not a function")}
	}

	exports := e.ToValue(env.Exports)
	_, err = fn(exports,
		exports,
		e.requireFunc(env.Require),
		e.moduleObject(env.Module),
		e.vm.ToValue(string(env.Filename)),
		e.vm.ToValue(string(env.Dirname)),
	)
	if err != nil {
		return e.unwrap(path, err)
	}
	return nil
}

// Eval evaluates src in the global scope and returns the result.
func (e *Engine) Eval(name, src string) (goja.Value, error) {
	v, err := e.vm.RunScript(name, src)
	if err != nil {
		return nil, e.unwrap(commonjs.ResolvedPath(name), err)
	}
	return v, nil
}

// ToValue converts a Go or foreign-engine value into a JavaScript value.
// Values that already belong to the runtime are returned unchanged.
func (e *Engine) ToValue(v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Undefined()
	case goja.Value:
		return t
	default:
		return e.vm.ToValue(engine.Plain(v))
	}
}

// throw raises err inside the runtime as a GoError.
func (e *Engine) throw(err error) {
	panic(e.vm.NewGoError(err))
}

// unwrap maps a goja error to the value Run returns. An uncaught GoError
// yields the Go error it carries, unchanged.
func (e *Engine) unwrap(path commonjs.ResolvedPath, err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if orig := ex.Unwrap(); orig != nil {
			return orig
		}
	}
	e.logger.Debug("javascript error", "path", path, "error", err)
	return &engine.ExecError{Engine: Name, Path: path, Err: err}
}

func (p *printer) Log(s string)   { writeLine(p.stdout, s) }
func (p *printer) Warn(s string)  { writeLine(p.stderr, s) }
func (p *printer) Error(s string) { writeLine(p.stderr, s) }

func writeLine(w io.Writer, s string) {
	_, _ = io.WriteString(w, s+"\n")
}

func stripShebang(src string) string {
	if !strings.HasPrefix(src, "#!") {
		return src
	}
	// Keep the newline so line numbers in errors stay correct.
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		return src[i:]
	}
	return ""
}
