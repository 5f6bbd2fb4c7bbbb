// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/cjs/pkg/commonjs"
)

const replHelp = `Commands:
  require <id>   load a module (once) and print its exports
  resolve <id>   print the file an identifier resolves to
  delete <id>    evict a module so the next require runs it again
  cache          list cached modules
  help           show this help
  exit           leave the session`

func newReplCommand(app *App, flags *rootFlags) *cobra.Command {
	var bundlePath string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Require modules interactively with one long-lived cache",
		Long: `Read commands from standard input and run them against a single module
cache, so that repeated requires return the cached exports until the module
is deleted from the cache.

` + replHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
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

			r := &repl{
				session: s,
				loader:  commonjs.NewLoader(s.delegate, commonjs.WithLogger(s.logger)),
				out:     app.stdout,
				errOut:  app.stderr,
			}
			return r.serve(app.stdin)
		},
	}
	cmd.Flags().StringVar(&bundlePath, "bundle", "", "load modules from a bundle created by 'cjs bundle'")
	return cmd
}

type repl struct {
	session *session
	loader  *commonjs.Loader
	out     io.Writer
	errOut  io.Writer
}

func (r *repl) serve(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "cjs> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)
		if done := r.dispatch(verb, arg); done {
			return nil
		}
	}
}

// dispatch runs one command and reports whether the session should end.
// Errors are printed and the session continues.
func (r *repl) dispatch(verb, arg string) bool {
	var err error
	switch verb {
	case "":
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprintln(r.out, replHelp)
	case "cache":
		r.listCache()
	case "require", "resolve", "delete":
		if arg == "" {
			err = fmt.Errorf("%s needs a module identifier", verb)
			break
		}
		err = r.moduleCommand(verb, arg)
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", verb)
	}
	if err != nil {
		fmt.Fprintln(r.errOut, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, false))
	}
	return false
}

func (r *repl) moduleCommand(verb, id string) error {
	switch verb {
	case "require":
		exports, err := r.loader.Bind(r.session.from()).Call(commonjs.UnresolvedPath(id))
		if err != nil {
			return moduleError("require module", id, err)
		}
		return printExports(r.out, exports)
	case "resolve":
		resolved, err := r.session.resolve(id)
		if err != nil {
			return moduleError("resolve module", id, err)
		}
		fmt.Fprintln(r.out, resolved)
		return nil
	default:
		resolved, err := r.session.resolve(id)
		if err != nil {
			return moduleError("resolve module", id, err)
		}
		cache := r.loader.Cache()
		if !cache.Has(resolved) {
			fmt.Fprintf(r.out, "%s is not cached\n", resolved)
			return nil
		}
		cache.Delete(resolved)
		fmt.Fprintf(r.out, "deleted %s\n", resolved)
		return nil
	}
}

func (r *repl) listCache() {
	cache := r.loader.Cache()
	paths := cache.Paths()
	if len(paths) == 0 {
		fmt.Fprintln(r.out, SubtitleStyle.Render("(empty)"))
		return
	}
	for _, p := range paths {
		m, _ := cache.Get(p)
		state := "loaded"
		if !m.Loaded {
			state = "loading"
		}
		fmt.Fprintf(r.out, "%s %s\n", PathStyle.Render(string(p)), SubtitleStyle.Render("("+state+")"))
	}
}
