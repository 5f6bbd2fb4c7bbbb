// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/cjs/internal/config"
)

// newConfigCommand creates the `cjs config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cjs configuration",
		Long: `Manage cjs configuration.

Configuration is read from the file given with --config, otherwise from
  - Linux: $XDG_CONFIG_HOME/cjs/config.cue (default ~/.config/cjs/config.cue)
  - macOS: ~/Library/Application Support/cjs/config.cue
  - Windows: %APPDATA%\cjs\config.cue
and finally from ./config.cue. Environment variables prefixed with CJS_
override file values, for example CJS_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where configuration is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("")
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return err
	}

	key := PathStyle.Render
	value := SuccessStyle.Render
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path == "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), path)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("extensions"), value(joinOrNone(cfg.ExtensionStrings())))
	fmt.Fprintf(w, "%s: %s\n", key("module_dirs"), value(joinOrNone(cfg.ModuleDirStrings())))
	fmt.Fprintf(w, "%s: %s\n", key("search_paths"), value(joinOrNone(cfg.SearchPaths)))

	enabled := make([]string, 0, len(config.KnownEngines))
	for _, name := range config.KnownEngines {
		if cfg.EngineEnabled(name) {
			enabled = append(enabled, string(name))
		}
	}
	fmt.Fprintf(w, "%s: %s\n", key("engines"), value(joinOrNone(enabled)))
	fmt.Fprintf(w, "%s: %s\n", key("shell.inherit_env"), value(fmt.Sprintf("%v", cfg.Shell.InheritEnv)))
	fmt.Fprintf(w, "%s: %s\n", key("log.level"), value(cfg.Log.Level.String()))
	return nil
}

func showConfigPath(app *App, flags *rootFlags) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return err
	}
	if path == "" {
		path = "(none, using defaults)"
	}
	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", path)
	return nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
