package subst

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/strata/conf"
)

// Doubled braces are protected from collapsing during nested passes by
// swapping them for guillemets, which are restored afterwards. Only the
// final top-level pass converts "{{" and "}}" to literal braces.
const (
	openGuard  = "«"
	closeGuard = "»"
)

func protectEscapes(s string) string {
	return strings.NewReplacer("{{", openGuard, "}}", closeGuard).Replace(s)
}

func restoreEscapes(s string) string {
	return strings.NewReplacer(openGuard, "{{", closeGuard, "}}").Replace(s)
}

// collapseEscapes performs the final top-level conversion of doubled
// braces to literals, covering doubles carried in substituted values
// that the scanner never saw as template text.
func collapseEscapes(s string) string {
	return strings.NewReplacer("{{", "{", "}}", "}").Replace(s)
}

// fieldError carries a failure out of the template scanner, tagged
// with its kind and the reference path that failed, so the string
// evaluator can consult the forgiveness policy and build the recorded
// error.
type fieldError struct {
	kind   Kind
	target string
	cause  error
}

func (e *fieldError) detail() string {
	if e.cause != nil {
		return e.cause.Error()
	}

	return e.kind.String()
}

// Evaluate substitutes replacement fields in value, lazily resolving
// references against the session namespace. Strings are scanned for
// "{path.to.key:spec}" fields; lists and mappings are walked
// recursively, returning new containers only along changed paths.
// Values of other types, including [ErrorString], pass through as-is.
//
// The location segments name where value lives, for error reporting.
//
// Without [WithRaiseErrors], failed substitutions become the empty
// string (or the policy's replacement) and the error is recorded on
// the session; with it, the first error aborts the evaluation.
func (c *Context) Evaluate(value any, location ...string) (any, error) {
	if !c.active {
		return nil, ErrInactiveSession
	}

	nesting := len(c.frames)
	mark := len(c.frames)
	c.frames = append(c.frames, frame{origin: slices.Clone(location)})

	defer func() { c.frames = c.frames[:mark] }()

	out, _, err := c.element(value, location, nesting)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// element dispatches on the value's type. The bool result reports
// whether the returned value differs from the input, which lets
// container walks preserve identity along unchanged paths.
func (c *Context) element(value any, location []string, nesting int) (any, bool, error) {
	switch t := value.(type) {
	case ErrorString:
		return t, false, nil
	case string:
		if !strings.Contains(t, "{") {
			return t, false, nil
		}

		return c.str(t, location, nesting)
	case []any:
		out := t
		changed := false

		for i, el := range t {
			loc := append(slices.Clone(location), strconv.Itoa(i))

			nv, ch, err := c.element(el, loc, nesting)
			if err != nil {
				return nil, false, err
			}

			if ch {
				if !changed {
					out = slices.Clone(t)
					changed = true
				}

				out[i] = nv
			}
		}

		return out, changed, nil
	case *conf.Mapping:
		out := t
		changed := false

		for key, el := range t.All() {
			loc := append(slices.Clone(location), key)

			nv, ch, err := c.element(el, loc, nesting)
			if err != nil {
				return nil, false, err
			}

			if ch {
				if !changed {
					out = conf.NewMapping()
					for k, v := range t.All() {
						out.Set(k, v)
					}

					changed = true
				}

				out.Set(key, nv)
			}
		}

		return out, changed, nil
	case map[string]any:
		out := t
		changed := false

		for key, el := range t {
			loc := append(slices.Clone(location), key)

			nv, ch, err := c.element(el, loc, nesting)
			if err != nil {
				return nil, false, err
			}

			if ch {
				if !changed {
					out = make(map[string]any, len(t))
					for k, v := range t {
						out[k] = v
					}

					changed = true
				}

				out[key] = nv
			}
		}

		return out, changed, nil
	default:
		return value, false, nil
	}
}

// str evaluates one template string: scan, then apply the forgiveness
// policy or record the error on failure. Nested passes protect doubled
// braces first so only the top-level pass collapses them.
func (c *Context) str(value string, location []string, nesting int) (string, bool, error) {
	work := value
	if nesting > 0 {
		work = protectEscapes(work)
	}

	out, ferr := c.expand(work, location)

	if ferr != nil {
		name := strings.Join(location, ".")

		fg, ok := c.cfg.policy[ferr.kind]
		if ok && fg.forgives() {
			out = fg.render(name, value, ferr.target, ferr.detail())
			c.forgiven = append(c.forgiven, name)
		} else {
			serr := &SubstitutionError{
				Kind:     ferr.kind,
				Target:   ferr.target,
				Location: name,
				Value:    value,
				cause:    ferr.cause,
			}

			c.errs = append(c.errs, serr)

			if c.cfg.raiseErrors {
				return "", false, serr
			}

			return "", true, nil
		}
	}

	if nesting > 0 {
		out = restoreEscapes(out)
	} else {
		out = collapseEscapes(out)
	}

	return out, out != value, nil
}

// expand runs the replacement fields of one template string.
func (c *Context) expand(s string, location []string) (string, *fieldError) {
	var b strings.Builder

	for i := 0; i < len(s); {
		switch {
		case s[i] == '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')

				i += 2

				continue
			}

			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", &fieldError{
					kind:  KindFormat,
					cause: errors.New("single '{' encountered in format string"),
				}
			}

			field := s[i+1 : i+end]
			i += end + 1

			path, spec, _ := strings.Cut(field, ":")

			val, ferr := c.lookup(path)
			if ferr != nil {
				return "", ferr
			}

			rendered, err := formatValue(val, spec)
			if err != nil {
				return "", &fieldError{kind: KindFormat, target: path, cause: err}
			}

			b.WriteString(rendered)
		case s[i] == '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')

				i += 2

				continue
			}

			return "", &fieldError{
				kind:  KindFormat,
				cause: errors.New("single '}' encountered in format string"),
			}
		default:
			b.WriteByte(s[i])
			i++
		}
	}

	return b.String(), nil
}

// lookup resolves one dotted reference path against the namespace,
// maintaining the location stack for cycle detection. String values
// fetched along the way are themselves evaluated (lazily, at lookup
// time) unless their namespace is opaque.
//
// A failure consults the policy first: a forgiven failure substitutes
// its placeholder for the field, absorbing any remaining path
// segments, exactly as if the placeholder had been the stored value.
func (c *Context) lookup(path string) (any, *fieldError) {
	// Rewind progress frames left over from this string's previous
	// fields, down to the enclosing evaluation barrier.
	for len(c.frames) > 0 && c.frames[len(c.frames)-1].progress != nil {
		c.frames = c.frames[:len(c.frames)-1]
	}

	origin := c.frames[len(c.frames)-1].origin
	lf := len(c.frames)
	c.frames = append(c.frames, frame{progress: []string{}, origin: origin})

	var cur any = c.ns

	for seg := range strings.SplitSeq(path, ".") {
		c.frames[lf].progress = append(c.frames[lf].progress, seg)
		progress := c.frames[lf].progress

		if other, found := c.cycleAt(lf, progress); found {
			cyc := &CyclicError{
				Location: strings.Join(origin, "."),
				Other:    strings.Join(other, "."),
			}
			ferr := &fieldError{
				kind:   KindCyclic,
				target: strings.Join(progress, "."),
				cause:  cyc,
			}

			return c.forgiveLookup(ferr, progress)
		}

		ns, ok := cur.(*Namespace)
		if !ok {
			ferr := &fieldError{
				kind:   KindMissingKey,
				target: strings.Join(progress, "."),
				cause:  fmt.Errorf("'%s' is not a namespace", strings.Join(progress[:len(progress)-1], ".")),
			}

			return c.forgiveLookup(ferr, progress)
		}

		val, ok := ns.Value(seg)
		if !ok {
			cause := fmt.Errorf("'%s'", seg)
			if suggest := suggestKeys(seg, ns); suggest != "" {
				cause = fmt.Errorf("'%s' (did you mean %s?)", seg, suggest)
			}

			ferr := &fieldError{
				kind:   KindMissingKey,
				target: strings.Join(progress, "."),
				cause:  cause,
			}

			return c.forgiveLookup(ferr, progress)
		}

		if s, isStr := val.(string); isStr && !ns.nosubst && strings.Contains(s, "{") {
			nested, err := c.nested(s, progress)
			if err != nil {
				ferr := &fieldError{kind: kindOf(err), target: strings.Join(progress, "."), cause: err}

				return c.forgiveLookup(ferr, progress)
			}

			val = nested
		}

		cur = val
	}

	return cur, nil
}

// nested evaluates a string fetched during a lookup, under its own
// evaluation barrier located at the fetched value's path. In
// accumulate mode its failures are recorded and it yields the empty
// string; an error returns only in raise mode.
func (c *Context) nested(s string, progress []string) (string, error) {
	nesting := len(c.frames)
	mark := len(c.frames)
	origin := slices.Clone(progress)
	c.frames = append(c.frames, frame{origin: origin})

	defer func() { c.frames = c.frames[:mark] }()

	out, _, err := c.str(s, origin, nesting)

	return out, err
}

// cycleAt reports whether any other progress frame has already reached
// the same path, returning that frame's origin.
func (c *Context) cycleAt(lf int, progress []string) ([]string, bool) {
	for i := range lf {
		f := c.frames[i]
		if f.progress != nil && slices.Equal(f.progress, progress) {
			return f.origin, true
		}
	}

	return nil, false
}

// forgiveLookup consults the policy for a failed lookup. When the kind
// is forgiven, the rendered placeholder becomes the field value; the
// caller stops descending.
func (c *Context) forgiveLookup(ferr *fieldError, progress []string) (any, *fieldError) {
	fg, ok := c.cfg.policy[ferr.kind]
	if !ok || !fg.forgives() {
		return nil, ferr
	}

	name := strings.Join(progress, ".")

	detail := fmt.Sprintf("%s: %s", ferr.kind, ferr.detail())
	if fg.Generic {
		return "(" + detail + ")", nil
	}

	last := progress[len(progress)-1]

	return fg.render(name, "", last, ferr.detail()), nil
}

// suggestKeys offers close matches for a missing key, drawn from the
// keys of the namespace where the descent stopped.
func suggestKeys(name string, ns *Namespace) string {
	matches := fuzzy.Find(name, ns.Keys())
	if len(matches) == 0 {
		return ""
	}

	const limit = 3

	quoted := make([]string, 0, limit)
	for _, m := range matches {
		quoted = append(quoted, "'"+m.Str+"'")
		if len(quoted) == limit {
			break
		}
	}

	return strings.Join(quoted, " or ")
}

func kindOf(err error) Kind {
	serr := &SubstitutionError{}
	if errors.As(err, &serr) {
		return serr.Kind
	}

	return KindEval
}
