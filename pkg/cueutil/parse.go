// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult is the outcome of ParseAndDecode.
type ParseResult[T any] struct {
	// Value is the decoded struct.
	Value *T
	// Unified is the schema-unified value, for callers needing more than Value.
	Unified cue.Value
}

// ParseAndDecode validates data against the definition at schemaPath in schema
// and decodes the unified value into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileBytes(schema)
	if err := schemaValue.Err(); err != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, err)
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := userValue.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}

	unified := root.Unify(userValue)
	if err := validate(unified, o); err != nil {
		return nil, err
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// DecodeValue compiles standalone CUE data and decodes it into plain Go values
// (map[string]any, []any, string, float64, int64, bool or nil).
func DecodeValue(data []byte, opts ...Option) (any, error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	v := cuecontext.New().CompileBytes(data, cue.Filename(o.filename))
	if err := v.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}
	if err := validate(v, o); err != nil {
		return nil, err
	}

	var out any
	if err := v.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return out, nil
}

func applyOptions(opts []Option) parseOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validate(v cue.Value, o parseOptions) error {
	var err error
	if o.concrete {
		err = v.Validate(cue.Concrete(true))
	} else {
		err = v.Validate()
	}
	return FormatError(err, o.filename)
}
