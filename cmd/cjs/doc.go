// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the cjs command line: running module graphs, resolving
// identifiers, inspecting dependency graphs, an interactive session, bundle
// packing and configuration management.
package cmd
