// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/invowk/cjs/internal/dag"
	"github.com/invowk/cjs/internal/delegate"
	"github.com/invowk/cjs/internal/engine"
	"github.com/invowk/cjs/internal/watch"
	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/fspath"
)

type runFlags struct {
	print    bool
	bundle   string
	watch    bool
	debounce time.Duration
}

func newRunCommand(app *App, flags *rootFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <entry>",
		Short: "Run an entry module with a fresh cache",
		Long: `Run an entry module with a fresh cache.

The entry is a file path relative to the working directory (or to the root
of the bundle when --bundle is given). Modules it requires are resolved,
read, run and cached; each module runs at most once.

With --watch, cjs keeps the cache after the first run and, whenever module
files change, evicts the changed modules and every module that required
them, then runs the entry again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rf.watch && rf.bundle != "" {
				return errors.New("--watch cannot be combined with --bundle")
			}
			return runEntry(cmd.Context(), app, flags, rf, args[0])
		},
	}
	cmd.Flags().BoolVarP(&rf.print, "print", "p", false, "print the entry's exports as JSON")
	cmd.Flags().StringVar(&rf.bundle, "bundle", "", "load modules from a bundle created by 'cjs bundle'")
	cmd.Flags().BoolVarP(&rf.watch, "watch", "w", false, "run again when module files change")
	cmd.Flags().DurationVar(&rf.debounce, "debounce", 0, "quiet period before a watch reload (default 300ms)")
	return cmd
}

func runEntry(ctx context.Context, app *App, flags *rootFlags, rf *runFlags, arg string) (err error) {
	s, err := app.openSession(ctx, flags, sessionOptions{bundlePath: rf.bundle})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	entry, err := s.resolveEntry(arg)
	if err != nil {
		return moduleError("resolve entry", arg, err)
	}

	if rf.watch {
		return watchEntry(ctx, app, s, rf, entry)
	}

	exports, err := commonjs.RequireMain(entry, s.delegate, commonjs.WithLogger(s.logger))
	if err != nil {
		return moduleError("run module", string(entry), err)
	}
	if rf.print {
		return printExports(app.stdout, exports)
	}
	return nil
}

func printExports(w io.Writer, exports any) error {
	out, err := engine.Render(exports)
	if err != nil {
		return fmt.Errorf("render exports: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// watchEntry runs entry once and then reloads it on every change under the
// working directory until ctx is canceled.
func watchEntry(ctx context.Context, app *App, s *session, rf *runFlags, entry commonjs.ResolvedPath) error {
	graph := dag.New()
	loader := commonjs.NewLoader(delegate.Recording(s.delegate, graph), commonjs.WithLogger(s.logger))
	reloader := watch.NewReloader(loader, graph, entry, s.logger)

	report := func(exports any, err error) {
		if err != nil {
			fmt.Fprintln(app.stderr, WarningStyle.Render("!")+" "+formatErrorForDisplay(moduleError("run module", string(entry), err), false))
			return
		}
		if rf.print {
			if err := printExports(app.stdout, exports); err != nil {
				fmt.Fprintln(app.stderr, WarningStyle.Render("!")+" "+err.Error())
			}
		}
	}

	report(loader.Require(entry))

	w, err := watch.New(watch.Config{
		Root:       fspath.ToOS(s.root),
		Extensions: s.engines.Extensions(),
		Debounce:   rf.debounce,
		Logger:     s.logger,
		OnChange: func(_ context.Context, changed []string) error {
			res, err := reloader.Reload(watch.ModulePaths(changed))
			fmt.Fprintf(app.stdout, "%s %d file(s) changed, %d module(s) reloaded\n",
				PathStyle.Render("→"), len(changed), len(res.Evicted))
			report(res.Exports, err)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	fmt.Fprintf(app.stdout, "%s watching %s (Ctrl+C to stop)\n", PathStyle.Render("→"), fspath.ToOS(s.root))
	return w.Run(ctx)
}
