// SPDX-License-Identifier: MPL-2.0

// Package bundle packs a directory of modules into a single SQLite file and
// serves it back as a module source. Stored paths are rooted at "/", so a
// bundle packed from ./app holds ./app/lib/util.js as /lib/util.js.
package bundle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	_ "modernc.org/sqlite"

	"github.com/invowk/cjs/internal/source"
	"github.com/invowk/cjs/pkg/commonjs"
)

const schema = `
CREATE TABLE IF NOT EXISTS modules (
    path TEXT PRIMARY KEY,
    code BLOB NOT NULL
);
`

// defaultPattern selects every file; without explicit patterns the result is
// narrowed to module files and package manifests.
const defaultPattern = "**/*"

var (
	// ErrNoFiles is returned by Pack when no file matches.
	ErrNoFiles = errors.New("no files matched")
	// ErrInvalidPattern is returned for malformed glob patterns.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Bundle is an opened module bundle. It implements source.Lookup.
type Bundle struct {
	db   *sql.DB
	path string
}

// Pack stores every file under root that matches one of patterns into a new
// bundle at dbPath, replacing its previous contents. It returns the number of
// files stored. With no patterns, files with a known module extension and
// package.json manifests are stored.
func Pack(ctx context.Context, dbPath, root string, patterns []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(dbPath) == "" {
		return 0, errors.New("bundle path is required")
	}

	fsys := os.DirFS(root)
	files, err := collect(fsys, patterns)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w under %s", ErrNoFiles, root)
	}

	db, err := openDB(dbPath, "")
	if err != nil {
		return 0, err
	}
	defer db.Close() //nolint:errcheck // best-effort cleanup

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return 0, fmt.Errorf("create bundle schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bundle transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM modules`); err != nil {
		return 0, fmt.Errorf("clear bundle: %w", err)
	}
	for _, name := range files {
		code, err := fs.ReadFile(fsys, name)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO modules (path, code) VALUES (?, ?)`, "/"+name, code); err != nil {
			return 0, fmt.Errorf("store %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bundle: %w", err)
	}
	return len(files), nil
}

// Open opens an existing bundle read-only.
func Open(ctx context.Context, dbPath string) (*Bundle, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	db, err := openDB(dbPath, "?_pragma=query_only(1)")
	if err != nil {
		return nil, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM modules`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open bundle %s: not a module bundle: %w", dbPath, err)
	}
	return &Bundle{db: db, path: dbPath}, nil
}

// Path returns the bundle's file path.
func (b *Bundle) Path() string { return b.path }

// Close releases the database handle.
func (b *Bundle) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// List returns every stored path in lexical order.
func (b *Bundle) List(ctx context.Context) ([]commonjs.ResolvedPath, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT path FROM modules ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list bundle: %w", err)
	}
	defer rows.Close()

	var paths []commonjs.ResolvedPath
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan bundle path: %w", err)
		}
		paths = append(paths, commonjs.ResolvedPath(p))
	}
	return paths, rows.Err()
}

// Stat implements source.Lookup. Directories are implied by stored paths.
func (b *Bundle) Stat(p commonjs.ResolvedPath) (source.Kind, error) {
	name := string(p)
	if !strings.HasPrefix(name, "/") {
		return source.KindNone, nil
	}

	var exists bool
	err := b.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM modules WHERE path = ?)`, name).Scan(&exists)
	if err != nil {
		return source.KindNone, fmt.Errorf("stat %s: %w", name, err)
	}
	if exists {
		return source.KindFile, nil
	}

	prefix := strings.TrimSuffix(name, "/") + "/"
	err = b.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM modules WHERE substr(path, 1, length(?)) = ?)`, prefix, prefix).Scan(&exists)
	if err != nil {
		return source.KindNone, fmt.Errorf("stat %s: %w", name, err)
	}
	if exists {
		return source.KindDir, nil
	}
	return source.KindNone, nil
}

// ReadFile implements source.Lookup.
func (b *Bundle) ReadFile(p commonjs.ResolvedPath) ([]byte, error) {
	var code []byte
	err := b.db.QueryRow(`SELECT code FROM modules WHERE path = ?`, string(p)).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", p, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return code, nil
}

func openDB(dbPath, params string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+params)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// collect returns the matching regular files, sorted and without duplicates.
func collect(fsys fs.FS, patterns []string) ([]string, error) {
	filter := len(patterns) == 0
	if filter {
		patterns = []string{defaultPattern}
	}

	var files []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		for _, m := range matches {
			if filter && !isModuleFile(m) {
				continue
			}
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func isModuleFile(name string) bool {
	if path.Base(name) == "package.json" {
		return true
	}
	return slices.Contains(source.DefaultExtensions, strings.ToLower(path.Ext(name)))
}
