// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	verbose    bool
	configPath string
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	return newRootCommand(app, &rootFlags{})
}

func newRootCommand(app *App, flags *rootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "cjs",
		Short: "Load and run CommonJS-style module graphs",
		Long: TitleStyle.Render("cjs") + SubtitleStyle.Render(" - CommonJS-style modules for JavaScript, Lua, shell, WebAssembly and data files") + `

cjs resolves, reads, runs and caches modules with synchronous require()
semantics. Modules may require each other across languages; circular
requires see the partially filled exports of the module being loaded.

` + SubtitleStyle.Render("Examples:") + `
  cjs run main.js --print     Run main.js and print its exports as JSON
  cjs resolve lodash          Show which file 'lodash' resolves to
  cjs graph main.js           Show the dependency graph and cycles
  cjs bundle . -o app.db      Pack the current directory into a bundle
  cjs run --bundle app.db /main.js
  cjs repl                    Require modules interactively`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cjs/config.cue)")

	root.AddCommand(
		newRunCommand(app, flags),
		newResolveCommand(app, flags),
		newGraphCommand(app, flags),
		newReplCommand(app, flags),
		newBundleCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

// Execute runs the CLI with the process streams and exits with its status.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(app.run(context.Background(), os.Args[1:]))
}

// run executes args and returns the process exit code.
func (a *App) run(ctx context.Context, args []string) int {
	flags := &rootFlags{}
	root := newRootCommand(a, flags)
	root.SetArgs(args)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, flags.verbose)
		}),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
