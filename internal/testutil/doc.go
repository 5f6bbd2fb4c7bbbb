// SPDX-License-Identifier: MPL-2.0

// Package testutil lays out module trees on disk for tests and wraps cleanup
// calls that would otherwise need error handling boilerplate.
package testutil
