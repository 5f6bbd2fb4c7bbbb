// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/invowk/cjs/internal/config"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version, Commit, BuildDate = "v0.3.0", "abc1234", "2026-01-02T10:00:00Z"
		want := "v0.3.0 (commit: abc1234, built: 2026-01-02T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("expected dev string, got %q", got)
		}
	})
}

type failingProvider struct{ err error }

func (p failingProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return nil, p.err
}

func newTestApp(t *testing.T, deps Dependencies) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	if deps.Stdin == nil {
		deps.Stdin = strings.NewReader("")
	}
	app, err := NewApp(deps)
	if err != nil {
		t.Fatalf("NewApp returned error: %v", err)
	}
	return app, &stdout, &stderr
}

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t, Dependencies{})
	root := NewRootCommand(app)

	want := []string{"bundle", "config", "graph", "repl", "resolve", "run"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("verbose") == nil || root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected --verbose and --config persistent flags")
	}
}

func TestRunReportsConfigFailure(t *testing.T) {
	t.Parallel()

	app, _, stderr := newTestApp(t, Dependencies{
		Config: failingProvider{err: errors.New("disk on fire")},
	})

	code := app.run(context.Background(), []string{"resolve", "./x"})
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	got := stderr.String()
	if !strings.Contains(got, "failed to load configuration") || !strings.Contains(got, "disk on fire") {
		t.Errorf("expected configuration error on stderr, got %q", got)
	}
}

func TestRunExitErrorCode(t *testing.T) {
	t.Parallel()

	app, _, stderr := newTestApp(t, Dependencies{
		Config: failingProvider{err: &ExitError{Code: 3}},
	})

	if code := app.run(context.Background(), []string{"config", "dump"}); code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
	if !strings.Contains(stderr.String(), "exit status 3") {
		t.Errorf("expected wrapped exit status on stderr, got %q", stderr.String())
	}
}
