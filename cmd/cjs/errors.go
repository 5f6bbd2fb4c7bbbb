// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/internal/issue"
	"github.com/invowk/cjs/internal/source"
)

// moduleError attaches operation context and catalog guidance to a loader
// failure. The original error stays reachable through errors.Is and As.
func moduleError(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)

	var readErr *source.ReadError
	switch {
	case errors.Is(err, source.ErrInvalidPackage):
		ctx.WithIssue(issue.InvalidPackageId).
			WithSuggestion(`check that the package's "main" field names an existing file`)
	case errors.Is(err, source.ErrNotFound), errors.Is(err, source.ErrInvalidID):
		ctx.WithIssue(issue.ModuleNotFoundId).
			WithSuggestions(
				"prefix relative identifiers with ./ or ../",
				"check module_dirs and search_paths (cjs config show)",
			)
	case errors.Is(err, engine.ErrUnsupported):
		ctx.WithIssue(issue.UnsupportedModuleId).
			WithSuggestion("make sure the engine for this extension is not disabled in engines.disabled")
	case errors.As(err, &readErr):
		ctx.WithIssue(issue.ModuleReadFailedId)
	case errors.Is(err, engine.ErrExecution):
		ctx.WithIssue(issue.ModuleExecutionFailedId).
			WithSuggestion("run with --verbose to see the full error chain")
	}
	return ctx.BuildError()
}

// formatErrorForDisplay uses ActionableError formatting when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err and, in verbose mode, the catalog entry attached to
// it.
func renderError(w io.Writer, err error, verbose bool) {
	if exitErr, ok := err.(*ExitError); ok && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if !verbose || !errors.As(err, &ae) || ae.Issue == 0 {
		return
	}
	entry := issue.Get(ae.Issue)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("dark")
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issue", ae.Issue, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}
