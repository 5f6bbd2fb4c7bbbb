// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"encoding/json"
	"math"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/invowk/cjs/pkg/commonjs"
)

// FunctionPlaceholder replaces callable values in rendered output.
const FunctionPlaceholder = "[function]"

// circularPlaceholder replaces a container that contains itself.
const circularPlaceholder = "[circular]"

type (
	// exporter is satisfied by JavaScript values.
	exporter interface {
		Export() any
	}

	plainer struct {
		seen map[uintptr]bool
	}
)

// Plain converts engine-native values into plain Go values so that exports can
// cross engine boundaries. Tables and objects become map[string]any or []any,
// scalars become string, float64, int64 or bool. Go functions are kept as-is so
// that callers can still invoke them; other unknown values are returned
// unchanged.
func Plain(v any) any {
	p := &plainer{seen: make(map[uintptr]bool)}
	return p.convert(v)
}

// Render encodes v as indented JSON after Plain, replacing functions with
// FunctionPlaceholder.
func Render(v any) ([]byte, error) {
	return json.MarshalIndent(printable(Plain(v)), "", "  ")
}

func (p *plainer) convert(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case exporter:
		return p.convert(t.Export())
	case *lua.LTable:
		return p.table(t)
	case lua.LString:
		return string(t)
	case lua.LNumber:
		return luaNumber(t)
	case lua.LBool:
		return bool(t)
	case *lua.LNilType:
		return nil
	case *lua.LUserData:
		return p.convert(t.Value)
	case commonjs.Object:
		return p.mapping(map[string]any(t))
	case map[string]any:
		return p.mapping(t)
	case []any:
		return p.list(t)
	default:
		return v
	}
}

func (p *plainer) mapping(m map[string]any) any {
	id := reflect.ValueOf(m).Pointer()
	if p.seen[id] {
		return circularPlaceholder
	}
	p.seen[id] = true
	defer delete(p.seen, id)

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = p.convert(v)
	}
	return out
}

func (p *plainer) list(l []any) any {
	if len(l) == 0 {
		return []any{}
	}
	id := reflect.ValueOf(l).Pointer()
	if p.seen[id] {
		return circularPlaceholder
	}
	p.seen[id] = true
	defer delete(p.seen, id)

	out := make([]any, len(l))
	for i, v := range l {
		out[i] = p.convert(v)
	}
	return out
}

func (p *plainer) table(t *lua.LTable) any {
	id := reflect.ValueOf(t).Pointer()
	if p.seen[id] {
		return circularPlaceholder
	}
	p.seen[id] = true
	defer delete(p.seen, id)

	if n := t.Len(); n > 0 && isSequence(t, n) {
		out := make([]any, n)
		for i := 1; i <= n; i++ {
			out[i-1] = p.convert(t.RawGetInt(i))
		}
		return out
	}

	out := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = p.convert(v)
	})
	return out
}

// isSequence reports whether t holds exactly the keys 1..n.
func isSequence(t *lua.LTable, n int) bool {
	count := 0
	ok := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		num, isNum := k.(lua.LNumber)
		if !isNum || float64(num) != math.Trunc(float64(num)) || num < 1 || int(num) > n {
			ok = false
		}
	})
	return ok && count == n
}

func luaNumber(n lua.LNumber) any {
	f := float64(n)
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// printable replaces values JSON cannot encode with placeholders.
func printable(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return v
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = printable(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = printable(e)
		}
		return out
	case *lua.LFunction:
		return FunctionPlaceholder
	case float32:
		return float64(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return FunctionPlaceholder
	case reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return rv.Type().String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	default:
		return v
	}
}
