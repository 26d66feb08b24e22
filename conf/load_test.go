package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}

	return path
}

// str renders a value for comparison so tests are not coupled to the
// decoder's choice of integer width.
func str(t *testing.T, m *Mapping, path string) string {
	t.Helper()

	v, ok := m.Lookup(path)
	if !ok {
		t.Fatalf("Lookup(%s): not found", path)
	}

	return fmt.Sprint(v)
}

func TestLoadPlain(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yml", "x: 1\ny:\n  z: hello\n")

	node, deps, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := str(t, node, "y.z"); got != "hello" {
		t.Errorf("y.z = %q", got)
	}

	abs, _ := filepath.Abs(path)
	if _, ok := deps[abs]; !ok {
		t.Errorf("deps = %v, missing %s", deps.Paths(), abs)
	}
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", "x: 1\ny: 2\nz: 3\n")
	path := writeFile(t, dir, "main.yml", "_include: base.yml\ny: 20\n")

	node, deps, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Including node's own keys win over included content.
	for path, want := range map[string]string{"x": "1", "y": "20", "z": "3"} {
		if got := str(t, node, path); got != want {
			t.Errorf("%s = %s, want %s", path, got, want)
		}
	}

	if len(deps) != 2 {
		t.Errorf("deps = %v, want 2 entries", deps.Paths())
	}
}

func TestLoadIncludeListOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.yml", "a: 1\nb: 1\n")
	writeFile(t, dir, "two.yml", "b: 2\nc: 2\n")
	path := writeFile(t, dir, "main.yml", "_include:\n  - one.yml\n  - two.yml\n")

	node, _, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Later includes layer over earlier ones.
	for path, want := range map[string]string{"a": "1", "b": "2", "c": "2"} {
		if got := str(t, node, path); got != want {
			t.Errorf("%s = %s, want %s", path, got, want)
		}
	}
}

func TestLoadIncludeNested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inner.yml", "deep: true\n")
	writeFile(t, dir, "mid.yml", "_include: inner.yml\nmid: yes\n")
	path := writeFile(t, dir, "main.yml", "_include: mid.yml\n")

	node, deps, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := str(t, node, "deep"); got != "true" {
		t.Errorf("deep = %s", got)
	}

	if len(deps) != 3 {
		t.Errorf("deps = %v, want 3 entries", deps.Paths())
	}
}

func TestLoadIncludeNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "_include: nonesuch.yml\n")

	_, _, err := Load(path, WithSearchPath(dir))
	if !errors.Is(err, ErrIncludeNotFound) {
		t.Fatalf("err = %v, want ErrIncludeNotFound", err)
	}
}

func TestLoadIncludeModule(t *testing.T) {
	dir := t.TempDir()
	modDir := filepath.Join(dir, "mod")

	if err := os.Mkdir(modDir, 0o755); err != nil {
		t.Fatal(err)
	}

	writeFile(t, modDir, "shared.yml", "from_module: 1\n")
	RegisterModule("testmod", modDir)

	path := writeFile(t, dir, "main.yml", "_include: (testmod)shared.yml\n")

	node, _, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := str(t, node, "from_module"); got != "1" {
		t.Errorf("from_module = %s", got)
	}

	bad := writeFile(t, dir, "bad.yml", "_include: (absent)x.yml\n")
	if _, _, err := Load(bad, WithSearchPath(dir)); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "_include: b.yml\n")
	writeFile(t, dir, "b.yml", "_include: a.yml\n")

	_, _, err := Load(filepath.Join(dir, "a.yml"), WithSearchPath(dir))
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("err = %v, want ErrRecursionLimit", err)
	}
}

func TestLoadUse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "_use: defaults.run\nmem: 16\n")

	run := NewMapping()
	run.Set("cpus", int64(4))
	run.Set("mem", int64(8))

	defaults := NewMapping()
	defaults.Set("run", run)

	source := NewMapping()
	source.Set("defaults", defaults)

	node, _, err := Load(path, WithSearchPath(dir), WithSources(source))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := str(t, node, "cpus"); got != "4" {
		t.Errorf("cpus = %s", got)
	}

	// Node's own keys win over used content.
	if got := str(t, node, "mem"); got != "16" {
		t.Errorf("mem = %s", got)
	}

	// The supplied source tree must be untouched.
	if v, _ := run.Get("mem"); v != int64(8) {
		t.Errorf("source mutated: mem = %v", v)
	}
}

func TestLoadUseMergeOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "_use: [defaults.a, defaults.b]\n")

	a := NewMapping()
	a.Set("y", "from-a")
	a.Set("only_a", "1")

	b := NewMapping()
	b.Set("y", "from-b")

	defaults := NewMapping()
	defaults.Set("a", a)
	defaults.Set("b", b)

	source := NewMapping()
	source.Set("defaults", defaults)

	node, _, err := Load(path, WithSearchPath(dir), WithSources(source))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Later references overlay earlier ones.
	if got := str(t, node, "y"); got != "from-b" {
		t.Errorf("y = %s", got)
	}

	if got := str(t, node, "only_a"); got != "1" {
		t.Errorf("only_a = %s", got)
	}

	// A key set on the node itself wins over every reference.
	own := writeFile(t, dir, "own.yml", "_use: [defaults.a, defaults.b]\ny: own\n")
	node, _, err = Load(own, WithSearchPath(dir), WithSources(source))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := str(t, node, "y"); got != "own" {
		t.Errorf("y = %s", got)
	}
}

func TestLoadUseSelfRefs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml",
		"common:\n  image: base\njob:\n  _use: common\n  cmd: run\n")

	node, _, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := str(t, node, "job.image"); got != "base" {
		t.Errorf("job.image = %s", got)
	}

	if got := str(t, node, "job.cmd"); got != "run" {
		t.Errorf("job.cmd = %s", got)
	}
}

func TestLoadUseNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "_use: defualts\n")

	defaults := NewMapping()
	defaults.Set("x", int64(1))

	source := NewMapping()
	source.Set("defaults", defaults)

	_, _, err := Load(path, WithSearchPath(dir), WithSources(source))
	if !errors.Is(err, ErrUseNotFound) {
		t.Fatalf("err = %v, want ErrUseNotFound", err)
	}
}

func TestLoadWithoutIncludes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "_include: base.yml\nx: 1\n")

	node, _, err := Load(path, WithSearchPath(dir), WithoutIncludes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !node.Has(IncludeKey) {
		t.Error("directive should remain when include processing is off")
	}
}

func TestLoadFlattenInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", "group:\n  a: 1\n  b: 2\n")
	path := writeFile(t, dir, "main.yml",
		"_include: base.yml\n_flatten: 1\n_flatten_sep: \".\"\n")

	node, _, err := Load(path, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, ok := node.Get("group.a")
	if !ok || fmt.Sprint(v) != "1" {
		t.Errorf("group.a = %v, %v", v, ok)
	}
}

func TestLoadIncludePathKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", "x: 1\n")
	path := writeFile(t, dir, "main.yml", "_include: base.yml\n")

	node, _, err := Load(path, WithSearchPath(dir), WithIncludePathKey("__path__"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, ok := node.Get("__path__")
	if !ok {
		t.Fatal("__path__ not recorded")
	}

	if filepath.Base(fmt.Sprint(v)) != "base.yml" {
		t.Errorf("__path__ = %v", v)
	}
}

func TestLoadNested(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "alpha.yml", "x: 1\n")
	b := writeFile(t, dir, "beta.yml", "_use: alpha\ny: 2\n")

	node, _, err := LoadNested([]string{a, b}, WithSearchPath(dir))
	if err != nil {
		t.Fatalf("LoadNested: %v", err)
	}

	if got := slices.Collect(node.Keys()); !slices.Equal(got, []string{"alpha", "beta"}) {
		t.Fatalf("sections = %v", got)
	}

	// Later files may use sections of earlier ones.
	if got := str(t, node, "beta.x"); got != "1" {
		t.Errorf("beta.x = %s", got)
	}
}

func TestLoadNestedDuplicate(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")

	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	a := writeFile(t, dir, "same.yml", "x: 1\n")
	b := writeFile(t, sub, "same.yml", "x: 2\n")

	_, _, err := LoadNested([]string{a, b}, WithSearchPath(dir))
	if !errors.Is(err, ErrDuplicateSection) {
		t.Fatalf("err = %v, want ErrDuplicateSection", err)
	}
}

func TestDecodePreservesOrder(t *testing.T) {
	node, err := Decode([]byte("zeta: 1\nalpha: 2\nmu: 3\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := []string{"zeta", "alpha", "mu"}
	if got := slices.Collect(node.Keys()); !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	node, err := Decode([]byte("b: 1\na:\n  nested: true\nlist:\n  - x\n  - y\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	data, err := Encode(node)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	again, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(Encode): %v", err)
	}

	if got := slices.Collect(again.Keys()); !slices.Equal(got, slices.Collect(node.Keys())) {
		t.Errorf("round trip reordered keys: %v", got)
	}
}
