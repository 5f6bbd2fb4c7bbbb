// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/cjs/internal/engine"
)

// writeExports prints exports for consumption by eval. Objects become one
// NAME='value' line per scalar entry whose key is a valid shell name; scalar
// exports are printed as-is.
func writeExports(w io.Writer, exports any) error {
	switch v := engine.Plain(exports).(type) {
	case nil:
		return nil
	case map[string]any:
		for _, name := range slices.Sorted(maps.Keys(v)) {
			if !syntax.ValidName(name) {
				continue
			}
			s, ok := scalar(v[name])
			if !ok {
				continue
			}
			quoted, err := syntax.Quote(s, syntax.LangBash)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s=%s\n", name, quoted); err != nil {
				return err
			}
		}
		return nil
	default:
		s, ok := scalar(v)
		if !ok {
			return nil
		}
		_, err := fmt.Fprintln(w, s)
		return err
	}
}

// scalar formats strings, numbers and booleans.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
