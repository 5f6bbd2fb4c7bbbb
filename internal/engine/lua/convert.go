// SPDX-License-Identifier: MPL-2.0

package lua

import (
	"fmt"
	"reflect"

	glua "github.com/yuin/gopher-lua"

	"github.com/invowk/cjs/internal/engine"
)

var errorType = reflect.TypeFor[error]()

// ToValue converts a Go or foreign-engine value into a Lua value. Values that
// are already Lua values are returned unchanged.
func (e *Engine) ToValue(v any) glua.LValue {
	if lv, ok := v.(glua.LValue); ok {
		return lv
	}
	return e.fromPlain(engine.Plain(v))
}

func (e *Engine) fromPlain(v any) glua.LValue {
	switch t := v.(type) {
	case nil:
		return glua.LNil
	case glua.LValue:
		return t
	case string:
		return glua.LString(t)
	case bool:
		return glua.LBool(t)
	case map[string]any:
		tbl := e.L.NewTable()
		for k, val := range t {
			tbl.RawSetString(k, e.fromPlain(val))
		}
		return tbl
	case []any:
		tbl := e.L.NewTable()
		for _, val := range t {
			tbl.Append(e.fromPlain(val))
		}
		return tbl
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return glua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return glua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return glua.LNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		tbl := e.L.NewTable()
		for i := range rv.Len() {
			tbl.Append(e.fromPlain(rv.Index(i).Interface()))
		}
		return tbl
	case reflect.Func:
		return e.goFunc(rv)
	default:
		ud := e.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// goFunc wraps a Go function so Lua can call it. Arguments are converted to
// the parameter types; a trailing error result is raised.
func (e *Engine) goFunc(fn reflect.Value) *glua.LFunction {
	typ := fn.Type()
	required := typ.NumIn()
	if typ.IsVariadic() {
		required--
	}

	return e.L.NewFunction(func(L *glua.LState) int {
		top := L.GetTop()
		if top < required {
			L.RaiseError("expected at least %d arguments, got %d", required, top)
		}
		in := make([]reflect.Value, 0, top)
		for i := 1; i <= top; i++ {
			var pt reflect.Type
			switch {
			case typ.IsVariadic() && i >= typ.NumIn():
				pt = typ.In(typ.NumIn() - 1).Elem()
			case i <= typ.NumIn():
				pt = typ.In(i - 1)
			default:
				continue
			}
			arg, err := toGo(L.Get(i), pt)
			if err != nil {
				L.ArgError(i, err.Error())
			}
			in = append(in, arg)
		}

		out := fn.Call(in)
		if n := len(out); n > 0 && typ.Out(n-1) == errorType {
			if errVal := out[n-1]; !errVal.IsNil() {
				e.raise(L, errVal.Interface().(error))
			}
			out = out[:n-1]
		}
		for _, o := range out {
			L.Push(e.fromPlain(engine.Plain(o.Interface())))
		}
		return len(out)
	})
}

// toGo converts a Lua argument to a value of type t.
func toGo(lv glua.LValue, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := lv.(glua.LNumber)
		if !ok {
			return reflect.Value{}, fmt.Errorf("number expected, got %s", lv.Type())
		}
		return reflect.ValueOf(int64(n)).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := lv.(glua.LNumber)
		if !ok || n < 0 {
			return reflect.Value{}, fmt.Errorf("non-negative number expected, got %s", lv.String())
		}
		return reflect.ValueOf(uint64(n)).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		n, ok := lv.(glua.LNumber)
		if !ok {
			return reflect.Value{}, fmt.Errorf("number expected, got %s", lv.Type())
		}
		return reflect.ValueOf(float64(n)).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(lv.String()).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(glua.LVAsBool(lv)).Convert(t), nil
	case reflect.Interface:
		v := engine.Plain(lv)
		if v == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(v), nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
}
