// SPDX-License-Identifier: MPL-2.0

package js

import (
	"github.com/dop251/goja"

	"github.com/invowk/cjs/pkg/commonjs"
)

// cacheView exposes the loader cache to scripts as require.cache.
type cacheView struct {
	e       *Engine
	require *commonjs.Require
}

// requireFunc builds the require function for one module, with require.resolve
// and require.cache attached.
func (e *Engine) requireFunc(req *commonjs.Require) goja.Value {
	fn := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		exports, err := req.Call(commonjs.UnresolvedPath(id))
		if err != nil {
			e.throw(err)
		}
		return e.ToValue(exports)
	})
	obj := fn.ToObject(e.vm)

	_ = obj.Set("resolve", func(call goja.FunctionCall) goja.Value {
		path, err := req.Resolve(commonjs.UnresolvedPath(call.Argument(0).String()))
		if err != nil {
			e.throw(err)
		}
		return e.vm.ToValue(string(path))
	})
	_ = obj.Set("cache", e.vm.NewDynamicObject(&cacheView{e: e, require: req}))
	return obj
}

// moduleObject builds the module binding. exports is an accessor over
// m.Exports so that assignments from script replace the loader's value.
func (e *Engine) moduleObject(m *commonjs.Module) *goja.Object {
	obj := e.vm.NewObject()
	_ = obj.Set("id", string(m.ID))
	_ = obj.Set("filename", string(m.ID))

	getter := e.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return e.ToValue(m.Exports)
	})
	setter := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		m.Exports = call.Argument(0)
		return goja.Undefined()
	})
	_ = obj.DefineAccessorProperty("exports", getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)

	loaded := e.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return e.vm.ToValue(m.Loaded)
	})
	_ = obj.DefineAccessorProperty("loaded", loaded, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	_ = obj.Set("require", e.requireFunc(m.Require()))
	return obj
}

func (c *cacheView) Get(key string) goja.Value {
	m, ok := c.require.Cache().Get(commonjs.ResolvedPath(key))
	if !ok {
		return nil
	}
	return c.e.moduleObject(m)
}

// Set refuses assignments; modules enter the cache only by being required.
func (c *cacheView) Set(string, goja.Value) bool { return false }

func (c *cacheView) Has(key string) bool {
	return c.require.Cache().Has(commonjs.ResolvedPath(key))
}

func (c *cacheView) Delete(key string) bool {
	c.require.Cache().Delete(commonjs.ResolvedPath(key))
	return true
}

func (c *cacheView) Keys() []string {
	paths := c.require.Cache().Paths()
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = string(p)
	}
	return keys
}
