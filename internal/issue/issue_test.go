// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestIdsAreSequential(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("expected %d issues, got %d", len(issues), len(values))
	}
	for i, is := range values {
		if is.Id() != Id(i+1) {
			t.Errorf("expected id %d at position %d, got %d", i+1, i, is.Id())
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	is := Get(ModuleNotFoundId)
	if is == nil {
		t.Fatal("Get(ModuleNotFoundId) returned nil")
	}
	if !strings.Contains(string(is.MarkdownMsg()), "Module not found") {
		t.Errorf("expected module-not-found guidance, got %q", is.MarkdownMsg())
	}
	if Get(Id(999)) != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestLinksAreCloned(t *testing.T) {
	t.Parallel()

	is := Get(ModuleNotFoundId)
	links := is.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	links[0] = "mutated"
	if is.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks should return a copy")
	}
	if len(is.DocLinks()) != 0 {
		t.Errorf("expected no doc links, got %v", is.DocLinks())
	}
}

func TestAllIssuesRender(t *testing.T) {
	t.Parallel()

	for _, is := range Values() {
		out, err := is.Render("notty")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", is.Id(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("issue %d rendered empty output", is.Id())
		}
	}
}

func TestRenderIncludesLinks(t *testing.T) {
	t.Parallel()

	out, err := Get(ModuleNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "nodejs.org") {
		t.Errorf("expected rendered links, got:\n%s", out)
	}
}
