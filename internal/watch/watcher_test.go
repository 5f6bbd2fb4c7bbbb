// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/invowk/cjs/internal/testutil"
)

type batches struct {
	mu  sync.Mutex
	got [][]string
	ch  chan struct{}
}

func newBatches() *batches {
	return &batches{ch: make(chan struct{}, 16)}
}

func (b *batches) onChange(_ context.Context, changed []string) error {
	b.mu.Lock()
	b.got = append(b.got, changed)
	b.mu.Unlock()
	b.ch <- struct{}{}
	return nil
}

func (b *batches) wait(t *testing.T) {
	t.Helper()
	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
}

func (b *batches) snapshot() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.got)
}

func startWatcher(t *testing.T, cfg Config) {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	})
}

func TestWatcherCoalescesChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newBatches()
	startWatcher(t, Config{Root: dir, Debounce: 100 * time.Millisecond, OnChange: b.onChange})

	for _, name := range []string{"a.js", "b.js", "c.lua"} {
		testutil.WriteFile(t, filepath.Join(dir, name), "x")
		time.Sleep(10 * time.Millisecond)
	}
	b.wait(t)
	time.Sleep(250 * time.Millisecond)

	got := b.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 batch, got %d: %v", len(got), got)
	}
	for _, name := range []string{"a.js", "b.js", "c.lua"} {
		if !slices.Contains(got[0], filepath.Join(dir, name)) {
			t.Errorf("expected %s in batch, got %v", name, got[0])
		}
	}
}

func TestWatcherFiltersExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newBatches()
	startWatcher(t, Config{
		Root:       dir,
		Extensions: []string{".js"},
		Debounce:   50 * time.Millisecond,
		OnChange:   b.onChange,
	})

	testutil.WriteFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	testutil.WriteFile(t, filepath.Join(dir, "package.json"), `{"main": "main.js"}`)
	testutil.WriteFile(t, filepath.Join(dir, "main.js"), "x")
	b.wait(t)

	var all []string
	for _, batch := range b.snapshot() {
		all = append(all, batch...)
	}
	if slices.Contains(all, filepath.Join(dir, "notes.txt")) {
		t.Errorf("expected notes.txt to be filtered, got %v", all)
	}
	if !slices.Contains(all, filepath.Join(dir, "main.js")) {
		t.Errorf("expected main.js in changes, got %v", all)
	}
}

func TestWatcherIgnoresPatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	b := newBatches()
	startWatcher(t, Config{
		Root:     dir,
		Ignore:   []string{"build/**"},
		Debounce: 50 * time.Millisecond,
		OnChange: b.onChange,
	})

	testutil.WriteFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")
	testutil.WriteFile(t, filepath.Join(dir, "main.js~"), "backup")
	testutil.WriteFile(t, filepath.Join(dir, "trigger.js"), "x")
	b.wait(t)

	for _, batch := range b.snapshot() {
		for _, p := range batch {
			if p != filepath.Join(dir, "trigger.js") {
				t.Errorf("expected only trigger.js, got %s", p)
			}
		}
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newBatches()
	startWatcher(t, Config{Root: dir, Debounce: 50 * time.Millisecond, OnChange: b.onChange})

	sub := filepath.Join(dir, "node_modules", "dep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the event loop a moment to register the new directories.
	time.Sleep(200 * time.Millisecond)
	testutil.WriteFile(t, filepath.Join(sub, "index.js"), "x")

	deadline := time.After(5 * time.Second)
	for {
		for _, batch := range b.snapshot() {
			if slices.Contains(batch, filepath.Join(sub, "index.js")) {
				return
			}
		}
		select {
		case <-b.ch:
		case <-deadline:
			t.Fatalf("expected change in new directory, got %v", b.snapshot())
		}
	}
}

func TestWatcherSkipsOverlappingCalls(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu       sync.Mutex
		active   int
		overlaps int
	)
	release := make(chan struct{})
	entered := make(chan struct{}, 4)
	startWatcher(t, Config{
		Root:     dir,
		Debounce: 30 * time.Millisecond,
		OnChange: func(ctx context.Context, _ []string) error {
			mu.Lock()
			active++
			if active > 1 {
				overlaps++
			}
			mu.Unlock()
			entered <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
			}
			mu.Lock()
			active--
			mu.Unlock()
			return nil
		},
	})

	testutil.WriteFile(t, filepath.Join(dir, "a.js"), "1")
	<-entered
	testutil.WriteFile(t, filepath.Join(dir, "b.js"), "2")
	time.Sleep(200 * time.Millisecond)
	close(release)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("deferred batch was never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if overlaps != 0 {
		t.Errorf("expected no overlapping calls, got %d", overlaps)
	}
}

func TestWatcherRunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait until the first Run has claimed the watcher.
	for !w.started.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}

func TestNewRejectsBadIgnorePattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Root: t.TempDir(), Ignore: []string{"[unclosed"}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	w := &Watcher{root: "/p", ignores: DefaultIgnores()}
	tests := []struct {
		path string
		want bool
	}{
		{"/p/.git", true},
		{"/p/.git/objects/ab", true},
		{"/p/src/main.js.swp", true},
		{"/p/main.js~", true},
		{"/p/node_modules/dep/index.js", false},
		{"/p/lib/util.lua", false},
	}
	for _, tt := range tests {
		if got := w.ignored(filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("ignored(%s): expected %v, got %v", tt.path, tt.want, got)
		}
	}
}
