// SPDX-License-Identifier: MPL-2.0

package source

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/cjs/pkg/commonjs"
)

// Memory is a Lookup over an in-memory set of module bodies. Directories are
// implied by the paths of the stored bodies. It is not safe for concurrent
// mutation.
type Memory struct {
	files map[commonjs.ResolvedPath]commonjs.Code
}

// NewMemory creates a Memory holding a copy of files.
func NewMemory(files map[commonjs.ResolvedPath]commonjs.Code) *Memory {
	m := &Memory{files: make(map[commonjs.ResolvedPath]commonjs.Code, len(files))}
	maps.Copy(m.files, files)
	return m
}

// Set stores code at path, replacing any previous body.
func (m *Memory) Set(path commonjs.ResolvedPath, code commonjs.Code) {
	m.files[path] = code
}

// Remove deletes the body stored at path.
func (m *Memory) Remove(path commonjs.ResolvedPath) {
	delete(m.files, path)
}

// Paths returns the stored paths in lexical order.
func (m *Memory) Paths() []commonjs.ResolvedPath {
	return slices.Sorted(maps.Keys(m.files))
}

// Stat reports whether path is a stored body, an implied directory or missing.
func (m *Memory) Stat(path commonjs.ResolvedPath) (Kind, error) {
	if _, ok := m.files[path]; ok {
		return KindFile, nil
	}
	if path == "." || path == "" {
		for p := range m.files {
			if !strings.HasPrefix(string(p), "/") {
				return KindDir, nil
			}
		}
		return KindNone, nil
	}
	prefix := strings.TrimSuffix(string(path), "/") + "/"
	for p := range m.files {
		if strings.HasPrefix(string(p), prefix) {
			return KindDir, nil
		}
	}
	return KindNone, nil
}

// ReadFile returns the body stored at path.
func (m *Memory) ReadFile(path commonjs.ResolvedPath) ([]byte, error) {
	code, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return []byte(code), nil
}
