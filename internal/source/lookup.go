// SPDX-License-Identifier: MPL-2.0

package source

import (
	"github.com/invowk/cjs/pkg/commonjs"
)

const (
	// KindNone means nothing exists at the path.
	KindNone Kind = iota
	// KindFile is a readable module body.
	KindFile
	// KindDir is a directory that may hold package.json or index files.
	KindDir
)

type (
	// Kind classifies what exists at a path.
	Kind int

	// Lookup is the storage a Source resolves against. Stat reports KindNone
	// with a nil error for paths that do not exist; errors are reserved for
	// storage failures.
	Lookup interface {
		Stat(path commonjs.ResolvedPath) (Kind, error)
		ReadFile(path commonjs.ResolvedPath) ([]byte, error)
	}
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "none"
	}
}
