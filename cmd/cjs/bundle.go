// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/cjs/internal/issue"
	"github.com/invowk/cjs/pkg/bundle"
)

func newBundleCommand(app *App, _ *rootFlags) *cobra.Command {
	var (
		output   string
		includes []string
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "bundle <dir>",
		Short: "Pack a directory of modules into a single bundle file",
		Long: `Pack the module files under a directory into a SQLite bundle. Paths inside
the bundle are rooted at "/", so <dir>/main.js becomes /main.js.

Without --include every file with a known module extension and every
package.json is packed. Patterns use doublestar syntax ("lib/**/*.js").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := bundle.Pack(ctx, output, args[0], includes)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("pack bundle").
					WithResource(args[0]).
					WithIssue(issue.BundleFailedId).
					Wrap(err).
					BuildError()
			}

			if !quiet {
				b, err := bundle.Open(ctx, output)
				if err != nil {
					return err
				}
				defer b.Close() //nolint:errcheck // read-only handle
				paths, err := b.List(ctx)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(app.stdout, "  %s\n", PathStyle.Render(string(p)))
				}
			}
			fmt.Fprintf(app.stdout, "%s packed %d module file(s) into %s\n", SuccessStyle.Render("✓"), n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "bundle.db", "bundle file to write")
	cmd.Flags().StringArrayVar(&includes, "include", nil, "doublestar pattern of files to pack (repeatable)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not list packed paths")
	return cmd
}
