// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// These benchmarks cover the loader's hot paths:
//   - identifier resolution over in-memory and afero-backed sources
//   - cold and cached requires through the JavaScript and Lua engines
//   - data module decoding (JSON, TOML, YAML, CUE)
//   - configuration loading
//
// To generate a profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
