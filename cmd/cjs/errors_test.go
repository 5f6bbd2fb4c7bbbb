// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/internal/issue"
	"github.com/invowk/cjs/internal/source"
)

func TestModuleErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{
			name: "not found",
			err:  &source.ResolveError{ID: "./x", From: "/main.js", Err: source.ErrNotFound},
			want: issue.ModuleNotFoundId,
		},
		{
			name: "invalid package",
			err:  fmt.Errorf("/node_modules/p/package.json: %w", source.ErrInvalidPackage),
			want: issue.InvalidPackageId,
		},
		{
			name: "unsupported",
			err:  &engine.UnsupportedError{Path: "/a.txt", Ext: ".txt"},
			want: issue.UnsupportedModuleId,
		},
		{
			name: "read",
			err:  &source.ReadError{Path: "/a.js", Err: errors.New("permission denied")},
			want: issue.ModuleReadFailedId,
		},
		{
			name: "execution",
			err:  &engine.ExecError{Engine: "js", Path: "/a.js", Err: errors.New("boom")},
			want: issue.ModuleExecutionFailedId,
		},
		{
			name: "other",
			err:  errors.New("something else"),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := moduleError("run module", "/a.js", tt.err)
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected ActionableError, got %T", err)
			}
			if ae.Issue != tt.want {
				t.Errorf("expected issue %d, got %d", tt.want, ae.Issue)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected cause to stay reachable through %v", err)
			}
		})
	}
}

func TestModuleErrorNil(t *testing.T) {
	t.Parallel()

	if err := moduleError("run module", "x", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	cause := &engine.ExecError{Engine: "lua", Path: "/m.lua", Err: errors.New("attempt to call a nil value")}
	err := moduleError("run module", "/m.lua", cause)

	var quiet bytes.Buffer
	renderError(&quiet, err, false)
	if !strings.Contains(quiet.String(), "failed to run module: /m.lua") {
		t.Errorf("expected operation and resource, got %q", quiet.String())
	}
	if strings.Contains(quiet.String(), "Error chain:") {
		t.Errorf("expected no error chain without verbose, got %q", quiet.String())
	}

	var verbose bytes.Buffer
	renderError(&verbose, err, true)
	if !strings.Contains(verbose.String(), "Error chain:") {
		t.Errorf("expected error chain in verbose mode, got %q", verbose.String())
	}
	if len(verbose.String()) <= len(quiet.String()) {
		t.Error("expected verbose output to include catalog guidance")
	}

	var silent bytes.Buffer
	renderError(&silent, &ExitError{Code: 2}, false)
	if silent.Len() != 0 {
		t.Errorf("expected bare exit errors to print nothing, got %q", silent.String())
	}
}
