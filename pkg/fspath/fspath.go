// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around the path package that accept
// and return commonjs.ResolvedPath. Resolved paths always use "/" as the
// separator; FromOS and ToOS convert at the boundary with the host filesystem.
package fspath

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/invowk/cjs/pkg/commonjs"
)

// Join joins a typed base path with raw string segments and cleans the result.
func Join(base commonjs.ResolvedPath, elem ...string) commonjs.ResolvedPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return commonjs.ResolvedPath(path.Join(parts...))
}

// Clean wraps path.Clean for ResolvedPath.
func Clean(p commonjs.ResolvedPath) commonjs.ResolvedPath {
	return commonjs.ResolvedPath(path.Clean(string(p)))
}

// IsAbs reports whether p is rooted.
func IsAbs(p commonjs.ResolvedPath) bool {
	return path.IsAbs(string(p))
}

// Ext returns the lower-cased file name extension of p, including the dot.
func Ext(p commonjs.ResolvedPath) string {
	return strings.ToLower(path.Ext(string(p)))
}

// Base wraps path.Base for ResolvedPath.
func Base(p commonjs.ResolvedPath) string {
	return path.Base(string(p))
}

// FromOS converts a host filesystem path into a ResolvedPath.
func FromOS(p string) commonjs.ResolvedPath {
	return commonjs.ResolvedPath(filepath.ToSlash(p))
}

// ToOS converts a ResolvedPath into a host filesystem path.
func ToOS(p commonjs.ResolvedPath) string {
	return filepath.FromSlash(string(p))
}

// Abs resolves p against the working directory of the process.
func Abs(p string) (commonjs.ResolvedPath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return FromOS(abs), nil
}
