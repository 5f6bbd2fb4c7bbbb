// SPDX-License-Identifier: MPL-2.0

package commonjs

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"testing"
)

var errNotFound = errors.New("module not found")

type (
	// body is the Go stand-in for a module's source. The fake delegate runs it
	// with the environment the loader built.
	body func(env *Environment) error

	resolveCall struct {
		id   UnresolvedPath
		from ResolvedPath
	}

	fakeDelegate struct {
		modules  map[ResolvedPath]body
		resolver func(id UnresolvedPath, from ResolvedPath) (ResolvedPath, error)
		readErr  map[ResolvedPath]error

		resolves []resolveCall
		reads    []ResolvedPath
		runs     []ResolvedPath
		envs     []*Environment
		log      []any
	}
)

func newFakeDelegate() *fakeDelegate {
	return &fakeDelegate{
		modules: make(map[ResolvedPath]body),
		readErr: make(map[ResolvedPath]error),
	}
}

func (d *fakeDelegate) Resolve(id UnresolvedPath, from ResolvedPath) (ResolvedPath, error) {
	d.resolves = append(d.resolves, resolveCall{id: id, from: from})
	if d.resolver != nil {
		return d.resolver(id, from)
	}
	if _, ok := d.modules[ResolvedPath(id)]; ok {
		return ResolvedPath(id), nil
	}
	return "", fmt.Errorf("could not resolve %s from %s: %w", id, from, errNotFound)
}

func (d *fakeDelegate) Read(path ResolvedPath) (Code, error) {
	d.reads = append(d.reads, path)
	if err := d.readErr[path]; err != nil {
		return "", err
	}
	return Code(path), nil
}

func (d *fakeDelegate) Run(code Code, env *Environment, path ResolvedPath) error {
	d.runs = append(d.runs, path)
	d.envs = append(d.envs, env)
	fn, ok := d.modules[ResolvedPath(code)]
	if !ok {
		return fmt.Errorf("no body for %s", code)
	}
	return fn(env)
}

func (d *fakeDelegate) count(calls []ResolvedPath, path ResolvedPath) int {
	n := 0
	for _, c := range calls {
		if c == path {
			n++
		}
	}
	return n
}

func mustCall(env *Environment, id UnresolvedPath) (any, error) {
	return env.Require.Call(id)
}

func exportsOf(env *Environment) Object {
	return env.Exports.(Object)
}

func TestRequireMain_RequireOneModuleFromAnother(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		_, err := mustCall(env, "two")
		return err
	}
	d.modules["two"] = func(env *Environment) error {
		d.log = append(d.log, "hi from two")
		return nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(d.log, []any{"hi from two"}) {
		t.Errorf("expected [hi from two], got %v", d.log)
	}
}

func TestRequire_ModuleIsCached(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	var first, second any
	d.modules["one"] = func(env *Environment) error {
		var err error
		if first, err = mustCall(env, "two"); err != nil {
			return err
		}
		second, err = mustCall(env, "two")
		return err
	}
	d.modules["two"] = func(env *Environment) error {
		d.log = append(d.log, "hi from two")
		exportsOf(env)["n"] = 1
		return nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.log) != 1 {
		t.Errorf("expected module body to run once, got %v", d.log)
	}
	if got := d.count(d.reads, "two"); got != 1 {
		t.Errorf("expected 1 read of two, got %d", got)
	}
	if got := d.count(d.runs, "two"); got != 1 {
		t.Errorf("expected 1 run of two, got %d", got)
	}
	if reflect.ValueOf(first).Pointer() != reflect.ValueOf(second).Pointer() {
		t.Error("expected both requires to return the identical exports value")
	}
}

func TestRequire_DeleteFromCacheReloads(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		if _, err := mustCall(env, "two"); err != nil {
			return err
		}
		path, err := env.Require.Resolve("two")
		if err != nil {
			return err
		}
		delete(env.Require.Cache(), path)
		_, err = mustCall(env, "two")
		return err
	}
	d.modules["two"] = func(env *Environment) error {
		d.log = append(d.log, "hi from two")
		return nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(d.log, []any{"hi from two", "hi from two"}) {
		t.Errorf("expected two runs, got %v", d.log)
	}
	if got := d.count(d.reads, "two"); got != 2 {
		t.Errorf("expected 2 reads of two, got %d", got)
	}
}

func TestRequire_CallsResolveReadRunFromDelegate(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		_, err := mustCall(env, "two")
		return err
	}
	d.modules["two-resolved"] = func(*Environment) error { return nil }
	d.resolver = func(id UnresolvedPath, from ResolvedPath) (ResolvedPath, error) {
		return "two-resolved", nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(d.resolves, []resolveCall{{id: "two", from: "one"}}) {
		t.Errorf("expected resolve(two, one), got %v", d.resolves)
	}
	if !slices.Equal(d.reads, []ResolvedPath{"one", "two-resolved"}) {
		t.Errorf("expected reads [one two-resolved], got %v", d.reads)
	}
	env := d.envs[1]
	if d.runs[1] != "two-resolved" {
		t.Errorf("expected run path two-resolved, got %q", d.runs[1])
	}
	if env.Module == nil || env.Require == nil || env.Exports == nil {
		t.Fatalf("expected a complete environment, got %+v", env)
	}
	if env.Filename != "two-resolved" || env.Dirname != "." {
		t.Errorf("expected filename two-resolved and dirname ., got %q and %q", env.Filename, env.Dirname)
	}
}

func TestRequireResolve_HasNoSideEffects(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	var resolved ResolvedPath
	d.modules["one"] = func(env *Environment) error {
		var err error
		resolved, err = env.Require.Resolve("two")
		return err
	}
	d.modules["two"] = func(*Environment) error {
		t.Error("two must not run")
		return nil
	}

	loader := NewLoader(d)
	if _, err := loader.Require("one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != "two" {
		t.Errorf("expected two, got %q", resolved)
	}
	if !slices.Equal(d.resolves, []resolveCall{{id: "two", from: "one"}}) {
		t.Errorf("expected resolve(two, one), got %v", d.resolves)
	}
	if loader.Cache().Has("two") {
		t.Error("expected two to stay out of the cache")
	}
}

func TestRequire_ReturnsReplacedModuleExports(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		two, err := mustCall(env, "two")
		d.log = append(d.log, two)
		return err
	}
	d.modules["two"] = func(env *Environment) error {
		env.Module.Exports = "forty-seven"
		return nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(d.log, []any{"forty-seven"}) {
		t.Errorf("expected [forty-seven], got %v", d.log)
	}
}

func TestEnvironment_ExportsIsModuleExports(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	var same bool
	d.modules["one"] = func(env *Environment) error {
		same = reflect.ValueOf(env.Exports).Pointer() == reflect.ValueOf(env.Module.Exports).Pointer()
		return nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !same {
		t.Error("expected exports and module.exports to be the same value")
	}
}

func TestRequire_NamedExports(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	var got any
	d.modules["one"] = func(env *Environment) error {
		var err error
		got, err = mustCall(env, "two")
		return err
	}
	d.modules["two"] = func(env *Environment) error {
		exportsOf(env)["something"] = "forty-seven"
		return nil
	}

	if _, err := RequireMain("one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Object{"something": "forty-seven"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEnvironment_IdentityOfNestedModules(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	record := func(env *Environment) {
		d.log = append(d.log, fmt.Sprintf("%s|%s|%s", env.Module.ID, env.Filename, env.Dirname))
	}
	d.modules["foo/one"] = func(env *Environment) error {
		record(env)
		_, err := mustCall(env, "bar/two")
		return err
	}
	d.modules["bar/two"] = func(env *Environment) error {
		record(env)
		return nil
	}

	if _, err := RequireMain("foo/one", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []any{"foo/one|foo/one|foo", "bar/two|bar/two|bar"}
	if !slices.Equal(d.log, want) {
		t.Errorf("expected %v, got %v", want, d.log)
	}
}

func TestRequire_ResolutionFailureHaltsModule(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		d.log = append(d.log, "before")
		if _, err := mustCall(env, "bad"); err != nil {
			return err
		}
		d.log = append(d.log, "after")
		return nil
	}

	loader := NewLoader(d)
	_, err := loader.Require("one")
	if !errors.Is(err, errNotFound) {
		t.Fatalf("expected resolution error, got %v", err)
	}
	if !slices.Equal(d.log, []any{"before"}) {
		t.Errorf("expected [before], got %v", d.log)
	}
	if len(loader.Cache()) != 0 {
		t.Errorf("expected empty cache, got %v", loader.Cache().Paths())
	}
}

func TestRequire_CircularDependencies(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		exportsOf(env)["before"] = "before"
		if _, err := mustCall(env, "two"); err != nil {
			return err
		}
		exportsOf(env)["after"] = "after"
		return nil
	}
	d.modules["two"] = func(env *Environment) error {
		one, err := mustCall(env, "one")
		if err != nil {
			return err
		}
		snapshot := Object{}
		for k, v := range one.(Object) {
			snapshot[k] = v
		}
		d.log = append(d.log, snapshot)
		return nil
	}

	exports, err := RequireMain("one", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.log) != 1 || !reflect.DeepEqual(d.log[0], Object{"before": "before"}) {
		t.Errorf("expected [{before: before}], got %v", d.log)
	}
	if !reflect.DeepEqual(exports, Object{"before": "before", "after": "after"}) {
		t.Errorf("expected complete exports after load, got %v", exports)
	}
	if got := d.count(d.runs, "one"); got != 1 {
		t.Errorf("expected one to run once, got %d", got)
	}
}

func TestRequire_ModulesThatErrorAreNotCached(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	errBad := errors.New("bad")
	d.modules["one"] = func(env *Environment) error {
		if _, err := mustCall(env, "two"); err != nil {
			if _, err2 := mustCall(env, "two"); err2 != nil {
				return nil
			}
		}
		return nil
	}
	d.modules["two"] = func(env *Environment) error {
		d.log = append(d.log, "in two")
		return errBad
	}

	loader := NewLoader(d)
	if _, err := loader.Require("one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(d.log, []any{"in two", "in two"}) {
		t.Errorf("expected [in two in two], got %v", d.log)
	}
	if got := d.count(d.reads, "two"); got != 2 {
		t.Errorf("expected 2 reads of two, got %d", got)
	}
	if loader.Cache().Has("two") {
		t.Error("expected failed module to be evicted")
	}
	if !loader.Cache().Has("one") {
		t.Error("expected one to stay cached")
	}
}

func TestRequire_ErrorsPropagateUnchanged(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	errBad := errors.New("bad")
	d.modules["one"] = func(env *Environment) error {
		_, err := mustCall(env, "two")
		return err
	}
	d.modules["two"] = func(*Environment) error { return errBad }

	_, err := RequireMain("one", d)
	if err != errBad { //nolint:errorlint // identity is the property under test
		t.Errorf("expected the original error value, got %v", err)
	}
}

func TestRequire_ReadErrorEvicts(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	errRead := errors.New("unreadable")
	d.modules["two"] = func(*Environment) error { return nil }
	d.readErr["two"] = errRead

	loader := NewLoader(d)
	_, err := loader.Bind("one").Call("two")
	if !errors.Is(err, errRead) {
		t.Fatalf("expected read error, got %v", err)
	}
	if loader.Cache().Has("two") {
		t.Error("expected two to be evicted after a read failure")
	}
	if got := d.count(d.runs, "two"); got != 0 {
		t.Errorf("expected no run after a read failure, got %d", got)
	}

	delete(d.readErr, "two")
	if _, err := loader.Bind("one").Call("two"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !loader.Cache().Has("two") {
		t.Error("expected two to be cached after a successful retry")
	}
}

func TestRequire_ExecutionErrorEvictsOnlyInFlightModules(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	errBoom := errors.New("boom")
	d.modules["one"] = func(env *Environment) error {
		if _, err := mustCall(env, "two"); err != nil {
			return err
		}
		_, err := mustCall(env, "three")
		return err
	}
	d.modules["two"] = func(*Environment) error { return nil }
	d.modules["three"] = func(env *Environment) error {
		_, err := mustCall(env, "four")
		return err
	}
	d.modules["four"] = func(*Environment) error { return errBoom }

	loader := NewLoader(d)
	if _, err := loader.Require("one"); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	want := []ResolvedPath{"two"}
	if got := loader.Cache().Paths(); !slices.Equal(got, want) {
		t.Errorf("expected cache %v, got %v", want, got)
	}
}

func TestModule_LoadedFlag(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	var during bool
	d.modules["one"] = func(env *Environment) error {
		during = env.Module.Loaded
		return nil
	}

	loader := NewLoader(d)
	if _, err := loader.Require("one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if during {
		t.Error("expected Loaded to be false while running")
	}
	m, ok := loader.Cache().Get("one")
	if !ok || !m.Loaded {
		t.Error("expected Loaded to be true after running")
	}
}

func TestRequireMain_ReturnsEntryExportsAndFreshCache(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(env *Environment) error {
		env.Module.Exports = "blah"
		return nil
	}

	for range 2 {
		got, err := RequireMain("one", d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "blah" {
			t.Errorf("expected blah, got %v", got)
		}
	}
	if got := d.count(d.runs, "one"); got != 2 {
		t.Errorf("expected each session to run the entry, got %d runs", got)
	}
}

type factoryDelegate struct {
	*fakeDelegate
}

type nativeExports struct{ fields map[string]any }

func (f factoryDelegate) NewExports(path ResolvedPath) any {
	return &nativeExports{fields: map[string]any{"path": string(path)}}
}

func TestLoader_UsesExportsFactory(t *testing.T) {
	t.Parallel()
	d := factoryDelegate{newFakeDelegate()}
	var seen any
	d.modules["one"] = func(env *Environment) error {
		seen = env.Exports
		return nil
	}

	got, err := RequireMain("one", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	native, ok := got.(*nativeExports)
	if !ok {
		t.Fatalf("expected *nativeExports, got %T", got)
	}
	if seen != got {
		t.Error("expected the environment to see the factory value")
	}
	if native.fields["path"] != "one" {
		t.Errorf("expected path one, got %v", native.fields["path"])
	}
}

func TestLoader_WithCacheSharesEntries(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(*Environment) error { return nil }

	shared := make(Cache)
	if _, err := NewLoader(d, WithCache(shared)).Require("one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewLoader(d, WithCache(shared)).Require("one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.count(d.runs, "one"); got != 1 {
		t.Errorf("expected shared cache to serve the second require, got %d runs", got)
	}
}

func TestLoader_LogsEvictions(t *testing.T) {
	t.Parallel()
	d := newFakeDelegate()
	d.modules["one"] = func(*Environment) error { return errors.New("boom") }

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := RequireMain("one", d, WithLogger(logger)); err == nil {
		t.Fatal("expected an error")
	}
	out := buf.String()
	for _, want := range []string{"loading module", "evicted module", "path=one"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got %q", want, out)
		}
	}
}
