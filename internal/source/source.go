// SPDX-License-Identifier: MPL-2.0

package source

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/fspath"
)

// packageManifest is the subset of package.json used for resolution.
const packageManifest = "package.json"

// DefaultExtensions is the probe order used when Options.Extensions is empty.
var DefaultExtensions = []string{".js", ".json", ".lua", ".sh", ".wasm", ".toml", ".yaml", ".yml", ".cue"}

type (
	// Options tunes resolution.
	Options struct {
		// Extensions are appended, in order, to candidates that do not exist as-is.
		Extensions []string
		// ModuleDirs are the directory names searched for bare identifiers in
		// every ancestor of the requiring module (default "node_modules").
		ModuleDirs []string
		// SearchPaths are searched for bare identifiers after ModuleDirs.
		SearchPaths []commonjs.ResolvedPath
	}

	// Source resolves and reads modules from a Lookup.
	Source struct {
		lookup Lookup
		opts   Options
	}

	packageJSON struct {
		Main string `json:"main"`
	}
)

// New creates a Source over lookup. Empty option fields take their defaults.
func New(lookup Lookup, opts Options) *Source {
	if len(opts.Extensions) == 0 {
		opts.Extensions = slices.Clone(DefaultExtensions)
	}
	if opts.ModuleDirs == nil {
		opts.ModuleDirs = []string{"node_modules"}
	}
	return &Source{lookup: lookup, opts: opts}
}

// Lookup returns the storage the Source reads from.
func (s *Source) Lookup() Lookup {
	return s.lookup
}

// Options returns the effective resolution options.
func (s *Source) Options() Options {
	return s.opts
}

// Resolve maps id, as written in the module at from, to a resolved path.
func (s *Source) Resolve(id commonjs.UnresolvedPath, from commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	raw := string(id)
	if strings.TrimSpace(raw) == "" {
		return "", &ResolveError{ID: id, From: from, Err: ErrInvalidID}
	}

	var tried []commonjs.ResolvedPath
	for _, base := range s.candidates(raw, from) {
		found, err := s.tryPath(base, &tried)
		if err != nil {
			return "", &ResolveError{ID: id, From: from, Tried: tried, Err: err}
		}
		if found != "" {
			return found, nil
		}
	}
	return "", &ResolveError{ID: id, From: from, Tried: tried, Err: ErrNotFound}
}

// Read returns the body stored at path.
func (s *Source) Read(path commonjs.ResolvedPath) (commonjs.Code, error) {
	data, err := s.lookup.ReadFile(path)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	return commonjs.Code(data), nil
}

// candidates lists the base paths id may refer to, in search order.
func (s *Source) candidates(raw string, from commonjs.ResolvedPath) []commonjs.ResolvedPath {
	switch {
	case strings.HasPrefix(raw, "/"):
		return []commonjs.ResolvedPath{fspath.Clean(commonjs.ResolvedPath(raw))}
	case isRelative(raw):
		return []commonjs.ResolvedPath{fspath.Join(commonjs.Dirname(from), raw)}
	}

	var out []commonjs.ResolvedPath
	dir := commonjs.Dirname(from)
	for {
		for _, moduleDir := range s.opts.ModuleDirs {
			if fspath.Base(dir) == moduleDir {
				continue
			}
			out = append(out, fspath.Join(dir, moduleDir, raw))
		}
		parent := commonjs.Dirname(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	for _, root := range s.opts.SearchPaths {
		out = append(out, fspath.Join(root, raw))
	}
	return out
}

// tryPath probes base as a file, with extensions, then as a directory.
func (s *Source) tryPath(base commonjs.ResolvedPath, tried *[]commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	if found, err := s.tryFile(base, tried); found != "" || err != nil {
		return found, err
	}
	return s.tryDir(base, tried)
}

func (s *Source) tryFile(base commonjs.ResolvedPath, tried *[]commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	probes := make([]commonjs.ResolvedPath, 0, 1+len(s.opts.Extensions))
	probes = append(probes, base)
	for _, ext := range s.opts.Extensions {
		probes = append(probes, base+commonjs.ResolvedPath(ext))
	}
	for _, p := range probes {
		*tried = append(*tried, p)
		kind, err := s.lookup.Stat(p)
		if err != nil {
			return "", err
		}
		if kind == KindFile {
			return p, nil
		}
	}
	return "", nil
}

func (s *Source) tryDir(dir commonjs.ResolvedPath, tried *[]commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	kind, err := s.lookup.Stat(dir)
	if err != nil || kind != KindDir {
		return "", err
	}

	manifest := fspath.Join(dir, packageManifest)
	kind, err = s.lookup.Stat(manifest)
	if err != nil {
		return "", err
	}
	if kind == KindFile {
		main, err := s.readMain(manifest)
		if err != nil {
			return "", err
		}
		if main != "" {
			target := fspath.Join(dir, main)
			if found, err := s.tryFile(target, tried); found != "" || err != nil {
				return found, err
			}
			if found, err := s.tryIndex(target, tried); found != "" || err != nil {
				return found, err
			}
		}
	}
	return s.tryIndex(dir, tried)
}

func (s *Source) tryIndex(dir commonjs.ResolvedPath, tried *[]commonjs.ResolvedPath) (commonjs.ResolvedPath, error) {
	for _, ext := range s.opts.Extensions {
		p := fspath.Join(dir, "index"+ext)
		*tried = append(*tried, p)
		kind, err := s.lookup.Stat(p)
		if err != nil {
			return "", err
		}
		if kind == KindFile {
			return p, nil
		}
	}
	return "", nil
}

func (s *Source) readMain(manifest commonjs.ResolvedPath) (string, error) {
	data, err := s.lookup.ReadFile(manifest)
	if err != nil {
		return "", &ReadError{Path: manifest, Err: err}
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidPackage, manifest, err)
	}
	return strings.TrimSpace(pkg.Main), nil
}

func isRelative(raw string) bool {
	return raw == "." || raw == ".." || strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../")
}
