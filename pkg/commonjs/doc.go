// SPDX-License-Identifier: MPL-2.0

// Package commonjs implements a synchronous, cache-based module loader with
// CommonJS "require" semantics.
//
// The package owns only the loading protocol: module identity, the per-session
// cache, environment construction, circular-dependency handling and the
// evict-on-failure policy. Everything else (where bytes live, how identifiers
// map to paths, how code executes) is supplied by a Delegate:
//
//	exports, err := commonjs.RequireMain("/app/main.js", delegate)
//
// A module is registered in the cache before its code runs, so a module that
// requires itself through a cycle observes the partially populated exports
// instead of recursing. A module whose Read or Run fails is evicted, so the next
// require of the same path starts from scratch.
//
// Errors are never wrapped or recovered by this package; whatever the delegate
// returns reaches the caller unchanged.
package commonjs
