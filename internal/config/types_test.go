// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"log/slog"
	"testing"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  bool
		slog  slog.Level
	}{
		{LogLevelDebug, true, slog.LevelDebug},
		{LogLevelInfo, true, slog.LevelInfo},
		{LogLevelWarn, true, slog.LevelWarn},
		{LogLevelError, true, slog.LevelError},
		{"", false, slog.LevelInfo},
		{"DEBUG", false, slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.level.IsValid()
			if isValid != tt.want {
				t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tt.level, isValid, tt.want)
			}
			if !tt.want && (len(errs) == 0 || !errors.Is(errs[0], ErrInvalidLogLevel)) {
				t.Errorf("expected ErrInvalidLogLevel, got %v", errs)
			}
			if got := tt.level.Level(); got != tt.slog {
				t.Errorf("LogLevel(%q).Level() = %v, want %v", tt.level, got, tt.slog)
			}
		})
	}
}

func TestEngineName_IsValid(t *testing.T) {
	t.Parallel()

	for _, name := range KnownEngines {
		if ok, errs := name.IsValid(); !ok {
			t.Errorf("expected %q to be valid, got %v", name, errs)
		}
	}
	ok, errs := EngineName("python").IsValid()
	if ok || len(errs) == 0 || !errors.Is(errs[0], ErrInvalidEngineName) {
		t.Errorf("expected ErrInvalidEngineName, got %v", errs)
	}
}

func TestExtension_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  Extension
		want bool
	}{
		{".js", true},
		{".tar-gz", true},
		{"js", false},
		{".", false},
		{"", false},
		{"./js", false},
		{".js ", false},
	}
	for _, tt := range tests {
		if got, _ := tt.ext.IsValid(); got != tt.want {
			t.Errorf("Extension(%q).IsValid() = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestModuleDir_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir  ModuleDir
		want bool
	}{
		{"node_modules", true},
		{"lib", true},
		{"", false},
		{"  ", false},
		{"a/b", false},
		{"..", false},
		{"nul", false},
	}
	for _, tt := range tests {
		if got, _ := tt.dir.IsValid(); got != tt.want {
			t.Errorf("ModuleDir(%q).IsValid() = %v, want %v", tt.dir, got, tt.want)
		}
	}
}

func TestConfig_Validate_CollectsErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Extensions = append(cfg.Extensions, "bad")
	cfg.ModuleDirs = append(cfg.ModuleDirs, "a/b")
	cfg.Engines.Disabled = []EngineName{"python"}
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", err)
	}
	if len(cfgErr.FieldErrors) != 4 {
		t.Errorf("expected 4 field errors, got %d: %v", len(cfgErr.FieldErrors), cfgErr.FieldErrors)
	}
	if !errors.Is(cfgErr.FieldErrors[0], ErrInvalidExtension) {
		t.Errorf("expected first error to be ErrInvalidExtension, got %v", cfgErr.FieldErrors[0])
	}
}
