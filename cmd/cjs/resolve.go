// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/cjs/pkg/commonjs"
)

func newResolveCommand(app *App, flags *rootFlags) *cobra.Command {
	var (
		from       string
		bundlePath string
	)
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Print the file an identifier resolves to",
		Long: `Print the file an identifier resolves to, exactly as require() would
from the working directory or from the module given with --from.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			s, err := app.openSession(ctx, flags, sessionOptions{bundlePath: bundlePath})
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := s.Close(ctx); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			requester := s.from()
			if from != "" {
				if requester, err = s.resolveEntry(from); err != nil {
					return moduleError("resolve requester", from, err)
				}
			}

			resolved, err := s.source.Resolve(commonjs.UnresolvedPath(args[0]), requester)
			if err != nil {
				return moduleError("resolve module", args[0], err)
			}
			fmt.Fprintln(app.stdout, resolved)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "resolve as if required from this module file")
	cmd.Flags().StringVar(&bundlePath, "bundle", "", "resolve inside a bundle created by 'cjs bundle'")
	return cmd
}
