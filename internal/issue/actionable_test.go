// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{"operation only", &ActionableError{Operation: "run module"}, "failed to run module"},
		{
			"operation with resource",
			&ActionableError{Operation: "run module", Resource: "./main.js"},
			"failed to run module: ./main.js",
		},
		{
			"full context",
			&ActionableError{Operation: "open bundle", Resource: "app.cjsb", Cause: errors.New("no such file")},
			"failed to open bundle: app.cjsb: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("module not found")
	err := NewErrorContext().
		WithOperation("resolve module").
		Wrap(fmt.Errorf("lookup: %w", sentinel)).
		BuildError()
	if !errors.Is(err, sentinel) {
		t.Errorf("expected errors.Is to find the cause through the chain")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("root cause")
	ae := &ActionableError{
		Operation:   "run module",
		Resource:    "/app/main.js",
		Suggestions: []string{"check the file", "run with -v"},
		Cause:       fmt.Errorf("wrapped: %w", root),
	}

	plain := ae.Format(false)
	if !strings.Contains(plain, "  • check the file") || !strings.Contains(plain, "  • run with -v") {
		t.Errorf("expected bulleted suggestions, got:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("expected no error chain without verbose, got:\n%s", plain)
	}

	verbose := ae.Format(true)
	if !strings.Contains(verbose, "1. wrapped: root cause") || !strings.Contains(verbose, "2. root cause") {
		t.Errorf("expected numbered error chain, got:\n%s", verbose)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("expected nil without an operation")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("expected untyped nil error, got %v", err)
	}

	ae := NewErrorContext().
		WithOperation("pack bundle").
		WithResource("./app").
		WithSuggestion("one").
		WithSuggestions("two", "three").
		WithIssue(BundleFailedId).
		Build()
	if ae.Operation != "pack bundle" || ae.Resource != "./app" {
		t.Errorf("unexpected fields: %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("expected 3 suggestions, got %v", ae.Suggestions)
	}
	if ae.Issue != BundleFailedId {
		t.Errorf("expected issue %d, got %d", BundleFailedId, ae.Issue)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("expected nil for nil error")
	}
	ae := WrapWithContext(errors.New("boom"), "read module", "/a.js")
	if ae.Error() != "failed to read module: /a.js: boom" {
		t.Errorf("unexpected message %q", ae.Error())
	}
	if NewActionableError("x").Operation != "x" {
		t.Error("expected NewActionableError to set the operation")
	}
}
