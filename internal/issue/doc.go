// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the cjs CLI and a catalog of
// Markdown guidance for common failure classes (unresolvable modules,
// unsupported file types, failed module bodies, bad configuration).
package issue
