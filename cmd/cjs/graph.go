// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/cjs/internal/dag"
	"github.com/invowk/cjs/internal/delegate"
	"github.com/invowk/cjs/pkg/commonjs"
)

func newGraphCommand(app *App, flags *rootFlags) *cobra.Command {
	var (
		bundlePath string
		dot        bool
	)
	cmd := &cobra.Command{
		Use:   "graph <entry>",
		Short: "Load an entry module and print its dependency graph",
		Long: `Load an entry module and print the modules in the order they finished
loading, every resolved require as an edge, and any require cycles.

Cycles are not errors: a module in a cycle sees the exports its peer had
assigned before it was required.`,
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

			entry, err := s.resolveEntry(args[0])
			if err != nil {
				return moduleError("resolve entry", args[0], err)
			}

			rec := delegate.Recording(s.delegate, dag.New())
			if _, err := commonjs.RequireMain(entry, rec, commonjs.WithLogger(s.logger)); err != nil {
				return moduleError("load module graph", string(entry), err)
			}

			if dot {
				writeDOT(app.stdout, rec.Graph(), s.display)
				return nil
			}
			writeGraph(app.stdout, rec, s.display)
			return nil
		},
	}
	cmd.Flags().StringVar(&bundlePath, "bundle", "", "load modules from a bundle created by 'cjs bundle'")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the graph in Graphviz DOT format")
	return cmd
}

// display shortens p relative to the session root.
func (s *session) display(p string) string {
	if s.root == "/" {
		return p
	}
	if rel, ok := strings.CutPrefix(p, string(s.root)+"/"); ok {
		return rel
	}
	return p
}

func writeGraph(w io.Writer, rec *delegate.Recorder, display func(string) string) {
	fmt.Fprintln(w, TitleStyle.Render("Load order"))
	for i, p := range rec.Order() {
		fmt.Fprintf(w, "  %d. %s\n", i+1, PathStyle.Render(display(string(p))))
	}

	g := rec.Graph()
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Requires"))
	edges := g.Edges()
	if len(edges) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, e := range edges {
		fmt.Fprintf(w, "  %s -> %s\n", display(e.From), display(e.To))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Cycles"))
	cycles := g.Cycles()
	if len(cycles) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, c := range cycles {
		names := make([]string, 0, len(c)+1)
		for _, n := range c {
			names = append(names, display(n))
		}
		names = append(names, display(c[0]))
		fmt.Fprintf(w, "  %s\n", WarningStyle.Render(strings.Join(names, " -> ")))
	}
}

func writeDOT(w io.Writer, g *dag.Graph, display func(string) string) {
	fmt.Fprintln(w, "digraph modules {")
	for _, n := range g.Nodes() {
		fmt.Fprintf(w, "  %q;\n", display(n))
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(w, "  %q -> %q;\n", display(e.From), display(e.To))
	}
	fmt.Fprintln(w, "}")
}
