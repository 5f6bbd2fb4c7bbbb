// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"io/fs"
	"syscall"

	"github.com/spf13/afero"

	"github.com/invowk/cjs/pkg/commonjs"
	"github.com/invowk/cjs/pkg/fspath"
)

// FS is a Lookup over an afero filesystem.
type FS struct {
	fs afero.Fs
}

// NewFS creates a Lookup backed by fsys.
func NewFS(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// NewOSFS creates a Lookup backed by the host filesystem.
func NewOSFS() *FS {
	return NewFS(afero.NewOsFs())
}

// Stat reports whether path is a file, a directory or missing.
func (f *FS) Stat(path commonjs.ResolvedPath) (Kind, error) {
	info, err := f.fs.Stat(fspath.ToOS(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return KindNone, nil
		}
		return KindNone, err
	}
	if info.IsDir() {
		return KindDir, nil
	}
	return KindFile, nil
}

// ReadFile returns the contents of path.
func (f *FS) ReadFile(path commonjs.ResolvedPath) ([]byte, error) {
	return afero.ReadFile(f.fs, fspath.ToOS(path))
}
