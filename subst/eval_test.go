package subst

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/strata/conf"
)

// testNS builds the shared fixture namespace: an opaque tree "x", and
// mutually referencing trees "foo" and "bar" including deliberate
// unresolved references and cycles.
func testNS() *Namespace {
	x := conf.NewMapping()
	x.Set("a", int64(1))
	x.Set("b", "{foo.a} not substituted since x is opaque")
	x.Set("c", int64(3))

	ns := NewNamespace()
	ns.Add("x", x, WithNoSubst())

	foo := NewNamespace()
	foo.Add("zero", int64(0))
	foo.Add("a", "{x.a}-{x.c}")
	foo.Add("b", "{foo.a}{{}}")
	foo.Add("c", "{bar.a}-{bar.x}-{bar.b}")
	ns.Add("foo", foo)

	bar := NewNamespace()
	bar.Add("a", int64(1))
	bar.Add("b", "{foo.b}")
	bar.Add("c", "{foo.x} deliberately unresolved")
	bar.Add("c1", "{foo.x.y.z} deliberately unresolved")
	bar.Add("b1", "{bar.b}")
	bar.Add("d", "{bar.d}")
	bar.Add("e", "{bar.f}")
	bar.Add("f", "{bar.e}")
	ns.Add("bar", bar)

	return ns
}

func evalString(t *testing.T, c *Context, in string) string {
	t.Helper()

	out, err := c.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", in, err)
	}

	s, ok := out.(string)
	if !ok {
		t.Fatalf("Evaluate(%q) = %T, want string", in, out)
	}

	return s
}

func TestEvaluateChained(t *testing.T) {
	c, done := Enter(testNS(), WithRaiseErrors())
	defer done()

	for in, want := range map[string]string{
		"{bar.a}":      "1",
		"{foo.a}":      "1-3",
		"{bar.b}":      "1-3{}",
		"{bar.b1}":     "1-3{}",
		"{foo.a}{{}}":  "1-3{}",
		"plain string": "plain string",
		"{{literal}}":  "{literal}",
	} {
		if got := evalString(t, c, in); got != want {
			t.Errorf("Evaluate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEvaluateContainers(t *testing.T) {
	c, done := Enter(testNS(), WithRaiseErrors())
	defer done()

	out, err := c.Evaluate([]any{"{x.a}-{x.c}", "{foo.a}{{}}"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	list := out.([]any)
	if list[0] != "1-3" || list[1] != "1-3{}" {
		t.Errorf("list = %v", list)
	}

	m := conf.NewMapping()
	m.Set("k", "{x.a}-{x.c}")

	out, err = c.Evaluate(m)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if v, _ := out.(*conf.Mapping).Get("k"); v != "1-3" {
		t.Errorf("k = %v, want 1-3", v)
	}

	// The input mapping must be untouched.
	if v, _ := m.Get("k"); v != "{x.a}-{x.c}" {
		t.Errorf("input mutated: k = %v", v)
	}
}

func TestEvaluatePreservesIdentity(t *testing.T) {
	c, done := Enter(testNS())
	defer done()

	m := conf.NewMapping()
	m.Set("a", "no fields here")
	m.Set("b", int64(5))

	out, err := c.Evaluate(m)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if out.(*conf.Mapping) != m {
		t.Error("unchanged mapping should be returned as-is")
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	c, done := Enter(testNS(), WithRaiseErrors())
	defer done()

	first := evalString(t, c, "{bar.b}")
	if second := evalString(t, c, first); second != first {
		t.Errorf("re-evaluating %q gave %q", first, second)
	}
}

func TestEvaluateOpaque(t *testing.T) {
	c, done := Enter(testNS(), WithRaiseErrors())
	defer done()

	want := "{foo.a} not substituted since x is opaque"
	if got := evalString(t, c, "{x.b}"); got != want {
		t.Errorf("opaque value = %q, want %q", got, want)
	}
}

func TestEvaluateAccumulatesErrors(t *testing.T) {
	c, done := Enter(testNS())
	defer done()

	if got := evalString(t, c, "{bar.c}"); got != "" {
		t.Errorf("failed substitution = %q, want empty", got)
	}

	if errs := c.Errors(); len(errs) != 1 {
		t.Fatalf("errors = %v, want 1", errs)
	}

	serr := &SubstitutionError{}
	if !errors.As(c.Errors()[0], &serr) || serr.Kind != KindMissingKey {
		t.Errorf("error = %v, want MissingKey", c.Errors()[0])
	}
}

func TestEvaluateForgivingEmpty(t *testing.T) {
	c, done := Enter(testNS(), Forgiving(""))
	defer done()

	if got := evalString(t, c, "{nothing}"); got != "" {
		t.Errorf("forgiven = %q, want empty", got)
	}

	if errs := c.Errors(); len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestEvaluateForgivingGeneric(t *testing.T) {
	c, done := Enter(testNS(), ForgivingGeneric())
	defer done()

	want := "(MissingKey: 'nothing')"
	if got := evalString(t, c, "{nothing}"); got != want {
		t.Errorf("Evaluate = %q, want %q", got, want)
	}

	// Remaining path segments are absorbed by the placeholder.
	if got := evalString(t, c, "{nothing.more}"); got != want {
		t.Errorf("Evaluate = %q, want %q", got, want)
	}

	if errs := c.Errors(); len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestEvaluateForgivingTemplate(t *testing.T) {
	c, done := Enter(testNS(), Forgiving("XX"))
	defer done()

	for in, want := range map[string]string{
		"{nothing}":       "XX",
		"{bar.c}":         "XX deliberately unresolved",
		"{bar.c1}":        "XX deliberately unresolved",
		"{bug.x} {bug.y}": "XX XX",
	} {
		if got := evalString(t, c, in); got != want {
			t.Errorf("Evaluate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEvaluateForgiveTemplatePlaceholders(t *testing.T) {
	c, done := Enter(testNS(), Forgiving("<{target}>"))
	defer done()

	if got := evalString(t, c, "{no.such.key}"); got != "<no>" {
		t.Errorf("Evaluate = %q, want <no>", got)
	}
}

func TestEvaluateCycles(t *testing.T) {
	c, done := Enter(testNS())
	defer done()

	if got := evalString(t, c, "{bar.d}"); got != "" {
		t.Errorf("direct cycle = %q, want empty", got)
	}

	if got := evalString(t, c, "{bar.e}"); got != "" {
		t.Errorf("mutual cycle = %q, want empty", got)
	}

	if got := evalString(t, c, "{foo.a:02d}"); got != "" {
		t.Errorf("bad format = %q, want empty", got)
	}

	errs := c.Errors()
	if len(errs) != 3 {
		t.Fatalf("errors = %v, want 3", errs)
	}

	serr := &SubstitutionError{}
	if !errors.As(errs[0], &serr) || serr.Kind != KindCyclic {
		t.Errorf("errors[0] = %v, want Cyclic", errs[0])
	}

	if !errors.As(errs[2], &serr) || serr.Kind != KindFormat {
		t.Errorf("errors[2] = %v, want Format", errs[2])
	}

	lerr, ok := c.Err().(*ErrorList)
	if !ok || lerr.Error() != "3 substitution error(s)" {
		t.Errorf("Err() = %v", c.Err())
	}
}

func TestEvaluateCycleRaises(t *testing.T) {
	c, done := Enter(testNS(), WithRaiseErrors())
	defer done()

	_, err := c.Evaluate("{bar.d}")
	if err == nil {
		t.Fatal("cycle did not raise")
	}

	serr := &SubstitutionError{}
	if !errors.As(err, &serr) || serr.Kind != KindCyclic {
		t.Errorf("err = %v, want Cyclic", err)
	}

	cyc := &CyclicError{}
	if !errors.As(err, &cyc) {
		t.Errorf("err = %v, want wrapped CyclicError", err)
	}
}

func TestEvaluateForgivenFormat(t *testing.T) {
	c, done := Enter(testNS(), Forgiving("XX"))
	defer done()

	out, err := c.Evaluate("{foo.a:02d}", "p")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if out != "XX" {
		t.Errorf("forgiven format = %v, want XX", out)
	}

	forgiven := c.Forgiven()
	if len(forgiven) != 1 || forgiven[0] != "p" {
		t.Errorf("forgiven = %v, want [p]", forgiven)
	}
}

func TestEvaluateInactiveSession(t *testing.T) {
	c, done := Enter(testNS())
	done()

	if _, err := c.Evaluate("anything"); !errors.Is(err, ErrInactiveSession) {
		t.Errorf("err = %v, want ErrInactiveSession", err)
	}
}

func TestEvaluateErrorStringPassthrough(t *testing.T) {
	c, done := Enter(testNS(), WithRaiseErrors())
	defer done()

	in := ErrorString("upstream failed: {not.scanned}")

	out, err := c.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if out != in {
		t.Errorf("ErrorString changed: %v", out)
	}
}

func TestEvaluateWith(t *testing.T) {
	err := With(testNS(), func(c *Context) error {
		if got := evalString(t, c, "{bar.a}"); got != "1" {
			t.Errorf("bar.a = %q", got)
		}

		return c.Err()
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}

func TestEvaluateReset(t *testing.T) {
	c, done := Enter(testNS())
	defer done()

	evalString(t, c, "{nothing}")

	if len(c.Errors()) != 1 {
		t.Fatalf("errors = %v", c.Errors())
	}

	c.Reset()

	if c.Err() != nil {
		t.Errorf("Err after Reset = %v", c.Err())
	}
}

func TestEvaluateMissingKeySuggestions(t *testing.T) {
	ns := NewNamespace()
	ns.Add("basename", "x")

	c, done := Enter(ns)
	defer done()

	evalString(t, c, "{basenam}")

	errs := c.Errors()
	if len(errs) != 1 {
		t.Fatalf("errors = %v", errs)
	}

	serr := &SubstitutionError{}
	if !errors.As(errs[0], &serr) {
		t.Fatalf("error type = %T", errs[0])
	}

	if msg := serr.Error(); !strings.Contains(msg, "basename") {
		t.Errorf("error %q lacks suggestion", msg)
	}
}
