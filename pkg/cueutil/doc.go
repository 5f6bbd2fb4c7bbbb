// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE helpers shared by configuration loading and
// .cue data modules.
//
// ParseAndDecode compiles an embedded schema, unifies user data with one of
// its definitions, validates the result and decodes it into a Go struct:
//
//	//go:embed config_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Config](schemaBytes, data, "#Config",
//	    cueutil.WithFilename("config.cue"))
//
// DecodeValue does the same for schema-less data and returns plain Go values.
// Errors from both are formatted with JSON-path style field locations.
package cueutil
