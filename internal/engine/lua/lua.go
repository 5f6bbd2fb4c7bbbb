// SPDX-License-Identifier: MPL-2.0

// Package lua runs modules written in Lua on gopher-lua.
//
// Each module body runs as a chunk whose environment is a fresh table that
// falls through to the shared globals. The table binds require, exports,
// module, __filename and __dirname; module.exports is a live view of the
// loader's Module.Exports. A chunk that returns a non-nil value replaces the
// module's exports with it.
package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	glua "github.com/yuin/gopher-lua"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/pkg/commonjs"
)

// Name is the engine name.
const Name = "lua"

type (
	// Engine runs Lua modules in one shared state. It is not safe for
	// concurrent use.
	Engine struct {
		L      *glua.LState
		stdout io.Writer
		logger *slog.Logger
		errMT  *glua.LTable
	}

	// Option configures an Engine.
	Option func(*Engine)
)

// WithStdout sets where print writes.
func WithStdout(w io.Writer) Option {
	return func(e *Engine) { e.stdout = w }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a Lua engine with the standard libraries opened.
func New(opts ...Option) *Engine {
	e := &Engine{
		L:      glua.NewState(),
		stdout: os.Stdout,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.errMT = e.L.NewTable()
	e.errMT.RawSetString("__tostring", e.L.NewFunction(func(L *glua.LState) int {
		ud := L.CheckUserData(1)
		if err, ok := ud.Value.(error); ok {
			L.Push(glua.LString(err.Error()))
		} else {
			L.Push(glua.LString(fmt.Sprint(ud.Value)))
		}
		return 1
	}))
	e.L.SetGlobal("print", e.L.NewFunction(e.print))
	return e
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Extensions implements engine.Engine.
func (e *Engine) Extensions() []string { return []string{".lua"} }

// NewExports returns a fresh table so that exports and module.exports are the
// same value inside the state.
func (e *Engine) NewExports(commonjs.ResolvedPath) any {
	return e.L.NewTable()
}

// Close releases the Lua state.
func (e *Engine) Close(context.Context) error {
	e.L.Close()
	return nil
}

// Run implements engine.Engine.
func (e *Engine) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	L := e.L
	fn, err := L.Load(strings.NewReader(string(code)), string(path))
	if err != nil {
		return &engine.ExecError{Engine: Name, Path: path, Err: err}
	}
	L.SetFEnv(fn, e.moduleEnv(env))

	if err := L.CallByParam(glua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return e.unwrap(path, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	if ret != glua.LNil {
		env.Module.Exports = ret
	}
	return nil
}

// moduleEnv builds the per-module environment table.
func (e *Engine) moduleEnv(env *commonjs.Environment) *glua.LTable {
	L := e.L
	tbl := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.G.Global)
	L.SetMetatable(tbl, mt)

	tbl.RawSetString("exports", e.ToValue(env.Exports))
	tbl.RawSetString("module", e.moduleObject(env.Module))
	tbl.RawSetString("require", L.NewFunction(e.requireFunc(env.Require)))
	tbl.RawSetString("require_resolve", L.NewFunction(func(L *glua.LState) int {
		path, err := env.Require.Resolve(commonjs.UnresolvedPath(L.CheckString(1)))
		if err != nil {
			e.raise(L, err)
		}
		L.Push(glua.LString(path))
		return 1
	}))
	tbl.RawSetString("__filename", glua.LString(env.Filename))
	tbl.RawSetString("__dirname", glua.LString(env.Dirname))
	return tbl
}

func (e *Engine) requireFunc(req *commonjs.Require) glua.LGFunction {
	return func(L *glua.LState) int {
		exports, err := req.Call(commonjs.UnresolvedPath(L.CheckString(1)))
		if err != nil {
			e.raise(L, err)
		}
		L.Push(e.ToValue(exports))
		return 1
	}
}

// moduleObject returns a proxy table whose exports, id and loaded fields read
// and write the Go module.
func (e *Engine) moduleObject(m *commonjs.Module) *glua.LTable {
	L := e.L
	proxy := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *glua.LState) int {
		switch L.CheckString(2) {
		case "exports":
			L.Push(e.ToValue(m.Exports))
		case "id", "filename":
			L.Push(glua.LString(m.ID))
		case "loaded":
			L.Push(glua.LBool(m.Loaded))
		default:
			L.Push(glua.LNil)
		}
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(func(L *glua.LState) int {
		key := L.CheckString(2)
		if key != "exports" {
			L.RaiseError("module.%s is read-only", key)
		}
		m.Exports = L.Get(3)
		return 0
	}))
	L.SetMetatable(proxy, mt)
	return proxy
}

// raise throws err as a userdata value so that Run can return it unchanged.
func (e *Engine) raise(L *glua.LState, err error) {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, e.errMT)
	L.Error(ud, 1)
}

// unwrap maps a Lua error to the value Run returns.
func (e *Engine) unwrap(path commonjs.ResolvedPath, err error) error {
	var apiErr *glua.ApiError
	if errors.As(err, &apiErr) {
		if ud, ok := apiErr.Object.(*glua.LUserData); ok {
			if orig, ok := ud.Value.(error); ok {
				return orig
			}
		}
	}
	e.logger.Debug("lua error", "path", path, "error", err)
	return &engine.ExecError{Engine: Name, Path: path, Err: err}
}

func (e *Engine) print(L *glua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	_, _ = io.WriteString(e.stdout, strings.Join(parts, "\t")+"\n")
	return 0
}
