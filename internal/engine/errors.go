// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/invowk/cjs/pkg/commonjs"
)

var (
	// ErrExecution is matched by every ExecError.
	ErrExecution = errors.New("module execution failed")
	// ErrUnsupported is the sentinel wrapped by UnsupportedError.
	ErrUnsupported = errors.New("no engine for module")
)

type (
	// ExecError is returned when an engine fails to compile or run a module
	// body. Errors raised by nested requires are returned as-is instead.
	ExecError struct {
		Engine string
		Path   commonjs.ResolvedPath
		Err    error
	}

	// UnsupportedError is returned when no registered engine handles a path.
	UnsupportedError struct {
		Path commonjs.ResolvedPath
		Ext  string
	}
)

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Engine, e.Path, e.Err)
}

// Unwrap returns the engine's underlying error.
func (e *ExecError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExecution.
func (e *ExecError) Is(target error) bool { return target == ErrExecution }

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("no engine for %s (no file extension)", e.Path)
	}
	return fmt.Sprintf("no engine for %s (extension %s)", e.Path, e.Ext)
}

// Unwrap returns ErrUnsupported so callers can use errors.Is.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }
