package repl

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/ardnew/strata/subst"
)

func testNamespace() *subst.Namespace {
	ns := subst.NewNamespace()
	ns.Add("info", map[string]any{"base": "run7", "suffix": "cal"})
	ns.Add("output", "{info.base}-{info.suffix}.dat")

	return ns
}

func TestCandidates(t *testing.T) {
	paths := candidates(testNamespace())

	for _, want := range []string{"info", "info.base", "info.suffix", "output"} {
		if !slices.Contains(paths, want) {
			t.Errorf("candidates missing %q: %v", want, paths)
		}
	}
}

func TestCurrentWord(t *testing.T) {
	text := "{info.ba} trailing"

	start, end := currentWord(text, 8)
	if text[start:end] != "info.ba" {
		t.Errorf("word = %q, want info.ba", text[start:end])
	}
}

func TestComplete(t *testing.T) {
	pool := candidates(testNamespace())

	matches, _, _ := complete(pool, "{inf.bs}", 7)
	if len(matches) == 0 {
		t.Fatal("no fuzzy matches for inf.bs")
	}
	if matches[0].Str != "info.base" {
		t.Errorf("best match = %q, want info.base", matches[0].Str)
	}

	matches, _, _ = complete(pool, "{} empty", 1)
	if len(matches) != 0 {
		t.Errorf("empty word should have no matches, got %v", matches)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}

	h.Add("{info.base}")
	h.Add("{info.base}") // duplicate, not recorded
	h.Add("=EXISTS('x')")

	if h.Len() != 2 {
		t.Fatalf("Len = %d, want 2", h.Len())
	}

	if err := h.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 || reloaded.Get(0) != "{info.base}" {
		t.Errorf("reloaded entries = %d, first = %q", reloaded.Len(), reloaded.Get(0))
	}
}

func TestEvalLine(t *testing.T) {
	m := newModel(testNamespace(), NewHistory(filepath.Join(t.TempDir(), "h")))

	lines := m.eval("{output}")
	if len(lines) == 0 {
		t.Fatal("no output lines")
	}
}
