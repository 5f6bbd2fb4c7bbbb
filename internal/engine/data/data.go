// SPDX-License-Identifier: MPL-2.0

// Package data loads configuration-style files as modules. The decoded value
// replaces the module's exports, so require("./settings.toml") returns the
// document itself.
package data

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/cueutil"
	"github.com/invowk/cjs/pkg/fspath"
)

// Name is the engine name.
const Name = "data"

type (
	// Engine decodes JSON, TOML, YAML and CUE modules.
	Engine struct{}

	decodeFunc func(data []byte, path commonjs.ResolvedPath) (any, error)
)

var decoders = map[string]decodeFunc{
	".json": decodeJSON,
	".toml": decodeTOML,
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".cue":  decodeCUE,
}

// New creates a data engine.
func New() *Engine {
	return &Engine{}
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Extensions implements engine.Engine.
func (e *Engine) Extensions() []string {
	return []string{".json", ".toml", ".yaml", ".yml", ".cue"}
}

// Run implements engine.Engine.
func (e *Engine) Run(code commonjs.Code, env *commonjs.Environment, path commonjs.ResolvedPath) error {
	decode, ok := decoders[fspath.Ext(path)]
	if !ok {
		return &engine.UnsupportedError{Path: path, Ext: fspath.Ext(path)}
	}
	v, err := decode([]byte(code), path)
	if err != nil {
		return &engine.ExecError{Engine: Name, Path: path, Err: err}
	}
	env.Module.Exports = normalize(v)
	return nil
}

func decodeJSON(data []byte, _ commonjs.ResolvedPath) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeTOML(data []byte, _ commonjs.ResolvedPath) (any, error) {
	var v map[string]any
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeYAML(data []byte, _ commonjs.ResolvedPath) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeCUE(data []byte, path commonjs.ResolvedPath) (any, error) {
	return cueutil.DecodeValue(data, cueutil.WithFilename(string(path)))
}

// normalize converts decoder-specific containers and integer types so that
// every format yields map[string]any, []any and int64 integers.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return v
	}
}
