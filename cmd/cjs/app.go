// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/cjs/internal/config"
	"github.com/invowk/cjs/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives it.
	App struct {
		Config config.Provider
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdin:  deps.Stdin,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(flags.configPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("run 'cjs config path' to see which file is read").
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}

// newLogger returns an slog.Logger backed by a charmbracelet/log handler
// writing to the App's stderr.
func (a *App) newLogger(cfg *config.Config, flags *rootFlags) *slog.Logger {
	level := cfg.Log.Level.Level()
	if flags.verbose {
		level = slog.LevelDebug
	}
	handler := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  log.Level(level),
	})
	return slog.New(handler)
}
