package formula

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardnew/strata/conf"
	"github.com/ardnew/strata/subst"
)

func testNS() *subst.Namespace {
	prev := subst.NewNamespace()
	prev.Add("size", 4)
	prev.Add("name", "alpha")
	prev.Add("path", "{previous.name}.dat")

	ns := subst.NewNamespace()
	ns.Add("previous", prev)
	ns.Add("enabled", true)

	return ns
}

func evalValue(t *testing.T, e *Evaluator, in any) any {
	t.Helper()

	out, err := e.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate(%v): %v", in, err)
	}

	return out
}

func TestEvaluatePassthrough(t *testing.T) {
	e := New(testNS())

	if out := evalValue(t, e, int64(7)); out != int64(7) {
		t.Errorf("int = %v", out)
	}

	if out := evalValue(t, e, "plain"); out != "plain" {
		t.Errorf("plain string = %v", out)
	}
}

func TestEvaluateEscapedEquals(t *testing.T) {
	e := New(testNS())

	if out := evalValue(t, e, "==not a formula"); out != "=not a formula" {
		t.Errorf("escaped = %v", out)
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	e := New(testNS())

	if out := evalValue(t, e, "=previous.size * 2"); out != 8 {
		t.Errorf("formula = %v (%T), want 8", out, out)
	}
}

func TestEvaluateComparison(t *testing.T) {
	e := New(testNS())

	if out := evalValue(t, e, `=previous.name == "alpha"`); out != true {
		t.Errorf("comparison = %v", out)
	}
}

func TestEvaluateIF(t *testing.T) {
	e := New(testNS())

	if out := evalValue(t, e, `=IF(enabled, "on", "off")`); out != "on" {
		t.Errorf("IF = %v", out)
	}

	if out := evalValue(t, e, `=IF(previous.size > 10, "big", "small")`); out != "small" {
		t.Errorf("IF = %v", out)
	}
}

func TestEvaluateIFSET(t *testing.T) {
	e := New(testNS())

	if out := evalValue(t, e, `=IFSET("previous.size")`); out != 4 {
		t.Errorf("IFSET present = %v", out)
	}

	if out := evalValue(t, e, `=IFSET("previous.nope")`); out != any(Unset) {
		t.Errorf("IFSET absent = %v, want Unset", out)
	}

	if out := evalValue(t, e, `=IFSET("previous.nope", "a", "b")`); out != "b" {
		t.Errorf("IFSET fallback = %v", out)
	}

	if out := evalValue(t, e, `=IFSET("previous.size", "set")`); out != "set" {
		t.Errorf("IFSET replacement = %v", out)
	}

	// Intermediate segments must exist.
	if _, err := e.Evaluate(`=IFSET("missing.deep.path")`); err == nil {
		t.Error("missing intermediate segment did not error")
	}
}

func TestEvaluateUnknownName(t *testing.T) {
	e := New(testNS())

	if _, err := e.Evaluate("=no_such_thing + 1"); !errors.Is(err, ErrFormulaParse) {
		t.Errorf("err = %v, want ErrFormulaParse", err)
	}
}

func TestEvaluateGlobExists(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	e := New(testNS())

	out := evalValue(t, e, `=GLOB("`+filepath.Join(dir, "*.txt")+`")`)

	matches := out.([]string)
	if len(matches) != 2 || filepath.Base(matches[0]) != "a.txt" {
		t.Errorf("GLOB = %v, want sorted matches", matches)
	}

	if out := evalValue(t, e, `=EXISTS("`+filepath.Join(dir, "*.txt")+`")`); out != true {
		t.Errorf("EXISTS = %v", out)
	}

	if out := evalValue(t, e, `=EXISTS("`+filepath.Join(dir, "*.bin")+`")`); out != false {
		t.Errorf("EXISTS miss = %v", out)
	}
}

func TestEvaluateLIST(t *testing.T) {
	e := New(testNS())

	out := evalValue(t, e, `=LIST(1, "two", previous.size)`)

	list := out.([]any)
	if len(list) != 3 || list[1] != "two" {
		t.Errorf("LIST = %v", list)
	}
}

func TestEvaluateSubstitutionInFormulaEnv(t *testing.T) {
	ns := testNS()

	err := subst.With(ns, func(c *subst.Context) error {
		e := New(ns, WithContext(c))

		if out := evalValue(t, e, "{previous.name}-suffix"); out != "alpha-suffix" {
			t.Errorf("plain substitution = %v", out)
		}

		if out := evalValue(t, e, "=previous.path"); out != "alpha.dat" {
			t.Errorf("env leaf substitution = %v", out)
		}

		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEvaluateMap(t *testing.T) {
	e := New(testNS())

	params := conf.NewMapping()
	params.Set("doubled", "=previous.size * 2")
	params.Set("removed", "=UNSET")
	params.Set("reverted", "=UNSET")
	params.Set("kept", "plain")
	params.Set("broken", subst.Unresolved{Value: "upstream"})

	defaults := conf.NewMapping()
	defaults.Set("reverted", int64(99))

	out, err := e.EvaluateMap(params, defaults, true)
	if err != nil {
		t.Fatalf("EvaluateMap: %v", err)
	}

	if v, _ := out.Get("doubled"); v != 8 {
		t.Errorf("doubled = %v", v)
	}

	if out.Has("removed") {
		t.Error("removed entry still present")
	}

	if v, _ := out.Get("reverted"); v != int64(99) {
		t.Errorf("reverted = %v, want default 99", v)
	}

	if v, _ := out.Get("kept"); v != "plain" {
		t.Errorf("kept = %v", v)
	}

	if _, ok := out.Get("broken"); !ok {
		t.Error("Unresolved entry should carry over")
	}
}

func TestEvaluateMapUnresolvedOnError(t *testing.T) {
	e := New(testNS())

	params := conf.NewMapping()
	params.Set("bad", "=nonexistent + 1")

	out, err := e.EvaluateMap(params, conf.NewMapping(), false)
	if err != nil {
		t.Fatalf("EvaluateMap: %v", err)
	}

	v, _ := out.Get("bad")
	if _, ok := v.(subst.Unresolved); !ok {
		t.Errorf("bad = %T, want subst.Unresolved", v)
	}

	// Raising mode surfaces the error instead.
	if _, err := e.EvaluateMap(params, conf.NewMapping(), true); err == nil {
		t.Error("raise mode did not return error")
	}
}
