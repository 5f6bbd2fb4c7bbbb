// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/cjs/pkg/commonjs"
)

var (
	// ErrNotFound is wrapped by ResolveError when no candidate exists.
	ErrNotFound = errors.New("module not found")
	// ErrInvalidID is wrapped by ResolveError when the identifier is empty.
	ErrInvalidID = errors.New("invalid module identifier")
	// ErrInvalidPackage is returned when a package.json cannot be decoded.
	ErrInvalidPackage = errors.New("invalid package.json")
)

type (
	// ResolveError is returned when an identifier cannot be mapped to a path.
	ResolveError struct {
		ID    commonjs.UnresolvedPath
		From  commonjs.ResolvedPath
		Tried []commonjs.ResolvedPath
		Err   error
	}

	// ReadError is returned when a resolved path cannot be read.
	ReadError struct {
		Path commonjs.ResolvedPath
		Err  error
	}
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("cannot resolve %q from %q: %v", e.ID, e.From, e.Err)
	if len(e.Tried) > 0 && errors.Is(e.Err, ErrNotFound) {
		tried := make([]string, len(e.Tried))
		for i, p := range e.Tried {
			tried[i] = string(p)
		}
		msg += " (tried " + strings.Join(tried, ", ") + ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ResolveError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ReadError) Unwrap() error { return e.Err }
