// SPDX-License-Identifier: MPL-2.0

// Package config handles cjs configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the platform config directory
// ($XDG_CONFIG_HOME/cjs/config.cue on Linux, ~/Library/Application Support/cjs
// on macOS, %APPDATA%\cjs on Windows), from ./config.cue, or from an explicit
// path. Files are validated against the embedded #Config schema before being
// merged over the defaults. Environment variables prefixed with CJS_ override
// file values (CJS_LOG_LEVEL, CJS_SEARCH_PATHS=a,b and so on).
package config
