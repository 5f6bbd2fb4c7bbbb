// SPDX-License-Identifier: MPL-2.0

package commonjs

// Require is the require function bound to one module. Identifiers passed to
// Call and Resolve are resolved relative to that module.
type Require struct {
	from   ResolvedPath
	loader *Loader
}

// Call resolves id and returns the exports of the target module, loading it
// first if it is not cached. A cached module is returned as-is, even if it is
// still executing further up the call stack.
func (r *Require) Call(id UnresolvedPath) (any, error) {
	path, err := r.loader.delegate.Resolve(id, r.from)
	if err != nil {
		return nil, err
	}
	return r.loader.Require(path)
}

// Resolve maps id to the path Call would load, without loading anything.
func (r *Require) Resolve(id UnresolvedPath) (ResolvedPath, error) {
	return r.loader.delegate.Resolve(id, r.from)
}

// Cache returns the shared module cache (not a copy).
func (r *Require) Cache() Cache {
	return r.loader.cache
}

// From returns the path identifiers are resolved against.
func (r *Require) From() ResolvedPath {
	return r.from
}
