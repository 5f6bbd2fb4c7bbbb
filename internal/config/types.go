// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/invowk/cjs/internal/source"
	"github.com/invowk/cjs/pkg/platform"
)

const (
	// LogLevelDebug traces every load, cache hit and eviction.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn reports recoverable problems only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError reports failures only.
	LogLevelError LogLevel = "error"

	// EngineJS runs .js and .cjs modules.
	EngineJS EngineName = "js"
	// EngineLua runs .lua modules.
	EngineLua EngineName = "lua"
	// EngineShell runs .sh modules.
	EngineShell EngineName = "shell"
	// EngineWasm runs .wasm modules.
	EngineWasm EngineName = "wasm"
	// EngineData decodes .json, .toml, .yaml, .yml and .cue modules.
	EngineData EngineName = "data"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidEngineName is returned when an EngineName value is not recognized.
	ErrInvalidEngineName = errors.New("invalid engine name")
	// ErrInvalidExtension is returned for extensions that do not start with a dot
	// or contain a path separator.
	ErrInvalidExtension = errors.New("invalid extension")
	// ErrInvalidModuleDir is returned for empty or nested module directory names.
	ErrInvalidModuleDir = errors.New("invalid module directory")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	// KnownEngines lists every engine name in registration order.
	KnownEngines = []EngineName{EngineJS, EngineLua, EngineShell, EngineWasm, EngineData}
)

type (
	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// EngineName identifies an execution engine.
	EngineName string

	// InvalidEngineNameError is returned when an EngineName value is not recognized.
	InvalidEngineNameError struct {
		Value EngineName
	}

	// Extension is a file extension including the leading dot.
	Extension string

	// InvalidExtensionError is returned when an Extension is malformed.
	InvalidExtensionError struct {
		Value Extension
	}

	// ModuleDir is a directory name searched for bare identifiers, such as
	// "node_modules".
	ModuleDir string

	// InvalidModuleDirError is returned when a ModuleDir is malformed.
	InvalidModuleDirError struct {
		Value ModuleDir
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Extensions is the probe order for identifiers without an extension.
		Extensions []Extension `json:"extensions" mapstructure:"extensions"`
		// ModuleDirs are searched in every ancestor directory for bare identifiers.
		ModuleDirs []ModuleDir `json:"module_dirs" mapstructure:"module_dirs"`
		// SearchPaths are extra roots searched for bare identifiers.
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		// Engines selects the execution engines.
		Engines EnginesConfig `json:"engines" mapstructure:"engines"`
		// Shell configures the shell engine.
		Shell ShellConfig `json:"shell" mapstructure:"shell"`
		// Log configures diagnostic output.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// EnginesConfig selects the execution engines.
	EnginesConfig struct {
		// Disabled engines are not registered; their modules fail to run.
		Disabled []EngineName `json:"disabled" mapstructure:"disabled"`
	}

	// ShellConfig configures the shell engine.
	ShellConfig struct {
		// InheritEnv passes the host environment to shell modules.
		InheritEnv bool `json:"inherit_env" mapstructure:"inherit_env"`
	}

	// LogConfig configures diagnostic output.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Level maps the LogLevel to its slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error implements the error interface.
func (e *InvalidEngineNameError) Error() string {
	return fmt.Sprintf("invalid engine %q (valid: js, lua, shell, wasm, data)", e.Value)
}

// Unwrap returns ErrInvalidEngineName for errors.Is() compatibility.
func (e *InvalidEngineNameError) Unwrap() error { return ErrInvalidEngineName }

// IsValid returns whether the EngineName is a known engine.
func (n EngineName) IsValid() (bool, []error) {
	if slices.Contains(KnownEngines, n) {
		return true, nil
	}
	return false, []error{&InvalidEngineNameError{Value: n}}
}

// String returns the string representation of the EngineName.
func (n EngineName) String() string { return string(n) }

// Error implements the error interface.
func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid extension %q (must start with '.' and contain no path separator)", e.Value)
}

// Unwrap returns ErrInvalidExtension for errors.Is() compatibility.
func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// IsValid returns whether the Extension is a dot followed by at least one
// character and no separators.
func (x Extension) IsValid() (bool, []error) {
	s := string(x)
	if len(s) < 2 || s[0] != '.' || strings.ContainsAny(s, `/\`) || strings.TrimSpace(s) != s {
		return false, []error{&InvalidExtensionError{Value: x}}
	}
	return true, nil
}

// String returns the string representation of the Extension.
func (x Extension) String() string { return string(x) }

// Error implements the error interface.
func (e *InvalidModuleDirError) Error() string {
	return fmt.Sprintf("invalid module directory %q (must be a single path segment usable on every platform)", e.Value)
}

// Unwrap returns ErrInvalidModuleDir for errors.Is() compatibility.
func (e *InvalidModuleDirError) Unwrap() error { return ErrInvalidModuleDir }

// IsValid returns whether the ModuleDir is a single path segment that is not
// a Windows reserved name.
func (d ModuleDir) IsValid() (bool, []error) {
	s := string(d)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, `/\`) || s == "." || s == ".." || platform.IsWindowsReservedName(s) {
		return false, []error{&InvalidModuleDirError{Value: d}}
	}
	return true, nil
}

// String returns the string representation of the ModuleDir.
func (d ModuleDir) String() string { return string(d) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the sentinel and each field's own sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks every field and returns an *InvalidConfigError listing all
// problems, or nil.
func (c *Config) Validate() error {
	var errs []error
	for _, x := range c.Extensions {
		if ok, fieldErrs := x.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	for _, d := range c.ModuleDirs {
		if ok, fieldErrs := d.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	for _, n := range c.Engines.Disabled {
		if ok, fieldErrs := n.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if ok, fieldErrs := c.Log.Level.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// EngineEnabled reports whether the engine is not disabled.
func (c *Config) EngineEnabled(name EngineName) bool {
	return !slices.Contains(c.Engines.Disabled, name)
}

// ExtensionStrings returns Extensions as plain strings.
func (c *Config) ExtensionStrings() []string {
	out := make([]string, len(c.Extensions))
	for i, x := range c.Extensions {
		out[i] = string(x)
	}
	return out
}

// ModuleDirStrings returns ModuleDirs as plain strings.
func (c *Config) ModuleDirStrings() []string {
	out := make([]string, len(c.ModuleDirs))
	for i, d := range c.ModuleDirs {
		out[i] = string(d)
	}
	return out
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	exts := make([]Extension, len(source.DefaultExtensions))
	for i, x := range source.DefaultExtensions {
		exts[i] = Extension(x)
	}
	return &Config{
		Extensions:  exts,
		ModuleDirs:  []ModuleDir{"node_modules"},
		SearchPaths: []string{},
		Engines:     EnginesConfig{Disabled: []EngineName{}},
		Shell:       ShellConfig{InheritEnv: false},
		Log:         LogConfig{Level: LogLevelInfo},
	}
}
