package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/strata/conf"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

// captureStdout runs fn with os.Stdout redirected to a pipe and
// returns everything written.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	orig := os.Stdout
	os.Stdout = w

	defer func() { os.Stdout = orig }()

	runErr := fn()

	w.Close()

	out := make([]byte, 0, 1024)
	buf := make([]byte, 1024)

	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)

		if err != nil {
			break
		}
	}

	return string(out), runErr
}

func TestLoadTreeResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", "host: example\nport: 1234\n")
	main := writeFile(t, dir, "main.yml", "_include: base.yml\nport: 80\n")

	tree, deps, err := loadTree(context.Background(), main)
	if err != nil {
		t.Fatalf("loadTree: %v", err)
	}

	host, _ := tree.Lookup("host")
	if host != "example" {
		t.Errorf("host = %v, want example", host)
	}

	if len(deps.Paths()) != 2 {
		t.Errorf("deps = %v, want both files", deps.Paths())
	}
}

func TestLoadTreeSearchRoots(t *testing.T) {
	shared := t.TempDir()
	writeFile(t, shared, "common.yml", "shared: yes\n")

	dir := t.TempDir()
	main := writeFile(t, dir, "main.yml", "_include: common.yml\n")

	ctx := WithSearchRoots(context.Background(), []string{shared})

	tree, _, err := loadTree(ctx, main)
	if err != nil {
		t.Fatalf("loadTree with roots: %v", err)
	}

	if _, ok := tree.Lookup("shared"); !ok {
		t.Error("include from search root not resolved")
	}
}

func TestResolveRunOutputsTree(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "main.yml", "name: demo\nnested:\n  key: val\n")

	cmd := Resolve{Source: source, Format: "yaml"}

	out, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out, "name: demo") {
		t.Errorf("output missing tree content:\n%s", out)
	}
}

func TestResolveRunDeps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", "a: 1\n")
	source := writeFile(t, dir, "main.yml", "_include: base.yml\n")

	cmd := Resolve{Source: source, Format: "yaml", Deps: true}

	out, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out, "base.yml") || !strings.Contains(out, "main.yml") {
		t.Errorf("deps output missing files:\n%s", out)
	}
}

func TestEvalRunTemplates(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "main.yml", "info:\n  base: run7\n  suffix: cal\n")

	cmd := Eval{
		Source:    source,
		Templates: []string{"{info.base}-{info.suffix}.dat"},
	}

	out, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out, "run7-cal.dat") {
		t.Errorf("output = %q, want substituted template", out)
	}
}

func TestEvalRunFormula(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "main.yml", "job:\n  size: 4\n")

	cmd := Eval{
		Source:    source,
		Templates: []string{"=job.size * 2"},
		Formula:   true,
	}

	out, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out, "8") {
		t.Errorf("output = %q, want 8", out)
	}
}

func TestEvalRunAccumulatedErrors(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "main.yml", "info:\n  base: run7\n")

	cmd := Eval{
		Source:    source,
		Templates: []string{"{info.nothing}"},
	}

	_, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err == nil {
		t.Fatal("want error for unresolved substitution")
	}
}

func TestEvalRunForgiving(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "main.yml", "info:\n  base: run7\n")

	tmpl := ""
	cmd := Eval{
		Source:      source,
		Templates:   []string{"before-{info.nothing}-after"},
		ForgiveWith: &tmpl,
	}

	out, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out, "before--after") {
		t.Errorf("output = %q, want collapsed placeholder", out)
	}
}

func TestLoadTreeMissingFile(t *testing.T) {
	_, _, err := loadTree(context.Background(), "/no/such/file.yml")
	if !errors.Is(err, conf.ErrReadConfig) {
		t.Fatalf("want ErrReadConfig, got %v", err)
	}
}
