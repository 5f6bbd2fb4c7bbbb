// SPDX-License-Identifier: MPL-2.0

// Package source resolves module identifiers to resolved paths and reads module
// bodies. Resolution follows the Node.js rules most hosts expect:
//
//   - "/x" is taken as-is
//   - "./x", "../x", "." and ".." are joined with the requiring module's directory
//   - anything else is a bare identifier, searched for in the configured module
//     directories (default "node_modules") of every ancestor of the requiring
//     module, then in the configured search paths
//
// Every candidate is tried as a file, then with each configured extension, then
// as a directory (package.json "main", then index files).
//
// Sources are backed by a Lookup, so the same rules apply to the host
// filesystem, an in-memory tree, or a packed bundle.
package source
