// SPDX-License-Identifier: MPL-2.0

package commonjs

type (
	// UnresolvedPath is a module identifier as written by the requiring code
	// (for example "./util" or "lodash"). It is only meaningful relative to the
	// module that wrote it.
	UnresolvedPath string

	// ResolvedPath is the canonical identity of a module. It is the cache key,
	// the value of Module.ID and the filename exposed to executing code.
	ResolvedPath string

	// Code is the raw textual body of a module as returned by Delegate.Read.
	Code string

	// Object is the initial exports value of a module when the delegate does not
	// provide its own. Code may mutate it in place or replace Module.Exports.
	Object map[string]any

	// Delegate supplies resolution, reading and execution policy to the loader.
	//
	// Resolve must fail if no module exists for id when required from the given
	// module. Read returns the body to execute. Run executes code with the
	// environment bindings live: any change made to env.Module.Exports (or to
	// the value env.Exports points at) must be visible once Run returns, and an
	// error raised by the executed code must be returned, not swallowed.
	Delegate interface {
		Resolve(id UnresolvedPath, from ResolvedPath) (ResolvedPath, error)
		Read(path ResolvedPath) (Code, error)
		Run(code Code, env *Environment, path ResolvedPath) error
	}

	// ExportsFactory is implemented by delegates that need an engine-native
	// initial exports value, so that exports and module.exports refer to the
	// same value inside the executing engine.
	ExportsFactory interface {
		NewExports(path ResolvedPath) any
	}
)

// String returns the identifier as written.
func (p UnresolvedPath) String() string { return string(p) }

// String returns the canonical path.
func (p ResolvedPath) String() string { return string(p) }

// String returns the module body.
func (c Code) String() string { return string(c) }
