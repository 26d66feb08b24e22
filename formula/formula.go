package formula

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/strata/conf"
	"github.com/ardnew/strata/subst"
)

// Predefined errors (sentinel values).
var (
	ErrFormulaParse = conf.NewError("error parsing formula")
	ErrFormulaEval  = conf.NewError("error evaluating formula")
	ErrNotDefined   = conf.NewError("name is not defined")
	ErrBadArguments = conf.NewError("invalid function arguments")
	ErrSubstitution = conf.NewError("substitution failed in formula")
)

// unsetType is the marker for values that are deliberately not set.
// [Evaluator.EvaluateMap] deletes entries that evaluate to it, or
// reverts them to their defaults.
type unsetType struct{}

func (unsetType) String() string { return "UNSET" }

// Unset is the value of the UNSET keyword in formulas, and the result
// of IFSET when the named entry is absent and no fallback is given.
var Unset = unsetType{}

// Option configures an [Evaluator].
type Option func(Evaluator) Evaluator

// WithContext resolves string values fetched by formulas through the
// given substitution session.
func WithContext(ctx *subst.Context) Option {
	return func(e Evaluator) Evaluator {
		e.ctx = ctx

		return e
	}
}

// WithLocation sets the location prefix reported in formula errors.
func WithLocation(location ...string) Option {
	return func(e Evaluator) Evaluator {
		e.location = location

		return e
	}
}

// Evaluator evaluates "="-prefixed formula strings against a
// namespace. Formulas use expression syntax with dotted namespace
// access plus the IF, IFSET, GLOB, EXISTS and LIST functions and the
// UNSET keyword.
//
// Compiled programs are cached by source, so re-evaluating the same
// formula against updated values skips the parse.
type Evaluator struct {
	ns       *subst.Namespace
	ctx      *subst.Context
	location []string

	mu    *sync.Mutex
	cache map[string]*vm.Program
}

// New returns an Evaluator over ns.
func New(ns *subst.Namespace, opts ...Option) *Evaluator {
	e := Evaluator{
		ns:    ns,
		mu:    &sync.Mutex{},
		cache: map[string]*vm.Program{},
	}

	for _, opt := range opts {
		e = opt(e)
	}

	return &e
}

// Evaluate resolves one value. Non-strings pass through. A string
// starting with "=" is parsed and evaluated as a formula; a string
// starting with "==" escapes to a literal "=" string (substituted but
// not parsed). Any other string is substituted through the session,
// when one was supplied.
func (e *Evaluator) Evaluate(value any, sublocation ...string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}

	loc := append(slices.Clone(e.location), sublocation...)

	if rest, found := strings.CutPrefix(s, "="); found {
		if strings.HasPrefix(rest, "=") {
			return e.resolve(rest, loc)
		}

		return e.formula(rest, loc)
	}

	return e.resolve(s, loc)
}

// EvaluateMap evaluates every entry of params, returning a new
// mapping. Entries already marked [subst.Unresolved] are carried over
// untouched. An entry that evaluates to [Unset] reverts to its entry
// in defaults, or disappears when defaults has none. When raiseErrors
// is false, a failed entry becomes a [subst.Unresolved] marker instead
// of aborting.
func (e *Evaluator) EvaluateMap(params, defaults *conf.Mapping, raiseErrors bool) (*conf.Mapping, error) {
	out := conf.NewMapping()

	for name, value := range params.All() {
		if _, isUnresolved := value.(subst.Unresolved); isUnresolved {
			out.Set(name, value)

			continue
		}

		resolved, err := e.Evaluate(value, name)
		if err != nil {
			if raiseErrors {
				return nil, err
			}

			resolved = subst.Unresolved{Errors: []error{err}}
		}

		if resolved == any(Unset) {
			if defaults.Has(name) {
				def, _ := defaults.Get(name)
				out.Set(name, def)
			}

			continue
		}

		out.Set(name, resolved)
	}

	return out, nil
}

// resolve substitutes replacement fields in s through the session.
func (e *Evaluator) resolve(s string, loc []string) (any, error) {
	if e.ctx == nil {
		return s, nil
	}

	out, err := e.ctx.Evaluate(s, loc...)
	if err != nil {
		return nil, ErrSubstitution.Wrap(err).
			With(slog.String("value", s))
	}

	return out, nil
}

func (e *Evaluator) formula(src string, loc []string) (any, error) {
	env := e.buildEnv(loc)

	program, err := e.compile(src, env)
	if err != nil {
		return nil, ErrFormulaParse.Wrap(err).With(
			slog.String("formula", src),
			slog.String("location", strings.Join(loc, ".")),
		)
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return nil, ErrFormulaEval.Wrap(err).With(
			slog.String("formula", src),
			slog.String("location", strings.Join(loc, ".")),
		)
	}

	if es, ok := out.(subst.ErrorString); ok {
		return nil, ErrSubstitution.With(
			slog.String("cause", string(es)),
			slog.String("location", strings.Join(loc, ".")),
		)
	}

	return out, nil
}

func (e *Evaluator) compile(src string, env map[string]any) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[src]; ok {
		return program, nil
	}

	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, err
	}

	e.cache[src] = program

	return program, nil
}

// buildEnv snapshots the namespace into the expression environment,
// resolving string leaves through the substitution session, and binds
// the builtin functions and the UNSET keyword.
func (e *Evaluator) buildEnv(loc []string) map[string]any {
	env := e.envTree(e.ns, loc)

	env["UNSET"] = Unset
	env["IF"] = e.funcIF
	env["IFSET"] = e.funcIFSET
	env["GLOB"] = funcGLOB
	env["EXISTS"] = funcEXISTS
	env["LIST"] = funcLIST

	return env
}

// envTree converts a namespace subtree into nested maps. Strings that
// carry replacement fields are resolved now, under a session that does
// not pollute the caller's error list; a failed resolution leaves a
// pass-through [subst.ErrorString] so only formulas that actually use
// the value report it.
func (e *Evaluator) envTree(ns *subst.Namespace, loc []string) map[string]any {
	out := make(map[string]any, len(ns.Keys()))

	for _, key := range ns.Keys() {
		val, _ := ns.Value(key)

		switch t := val.(type) {
		case *subst.Namespace:
			out[key] = e.envTree(t, append(slices.Clone(loc), key))
		case string:
			out[key] = e.leaf(t, append(slices.Clone(loc), key))
		default:
			out[key] = val
		}
	}

	return out
}

func (e *Evaluator) leaf(s string, loc []string) any {
	if e.ctx == nil || !strings.Contains(s, "{") {
		return s
	}

	var out any

	err := subst.With(e.ns, func(c *subst.Context) error {
		v, err := c.Evaluate(s, loc...)
		if err != nil {
			return err
		}

		out = v

		return nil
	}, subst.WithRaiseErrors())
	if err != nil {
		return subst.ErrorString(err.Error())
	}

	return out
}

func (e *Evaluator) funcIF(args ...any) (any, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, ErrBadArguments.With(
			slog.String("function", "IF"),
			slog.Int("args", len(args)),
		)
	}

	cond := args[0]

	if cond == any(Unset) {
		if len(args) == 4 {
			return args[3], nil
		}

		return nil, ErrNotDefined.With(slog.String("function", "IF"))
	}

	if truthy(cond) {
		return args[1], nil
	}

	return args[2], nil
}

// funcIFSET looks up a dotted path in the namespace. With one argument
// it returns the stored value or [Unset]; the optional second and
// third arguments replace the result when the entry is present or
// absent.
func (e *Evaluator) funcIFSET(path string, rest ...any) (any, error) {
	if len(rest) > 2 {
		return nil, ErrBadArguments.With(
			slog.String("function", "IFSET"),
			slog.Int("args", len(rest)+1),
		)
	}

	segments := strings.Split(path, ".")
	cur := any(e.ns)

	for i, seg := range segments {
		ns, ok := cur.(*subst.Namespace)
		if !ok {
			return nil, ErrNotDefined.With(
				slog.String("name", path),
				slog.String("at", strings.Join(segments[:i], ".")),
			)
		}

		val, ok := ns.Value(seg)
		if !ok {
			// Only the final segment may be absent.
			if i < len(segments)-1 {
				return nil, ErrNotDefined.With(
					slog.String("name", path),
					slog.String("at", seg),
				)
			}

			if len(rest) == 2 && rest[1] != nil {
				return rest[1], nil
			}

			return Unset, nil
		}

		cur = val
	}

	if len(rest) >= 1 && rest[0] != nil {
		return rest[0], nil
	}

	if s, ok := cur.(string); ok {
		return e.resolve(s, segments)
	}

	return cur, nil
}

func funcGLOB(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, ErrBadArguments.Wrap(err).
			With(slog.String("function", "GLOB"))
	}

	slices.Sort(matches)

	return matches, nil
}

func funcEXISTS(pattern string) (bool, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return false, ErrBadArguments.Wrap(err).
			With(slog.String("function", "EXISTS"))
	}

	return len(matches) > 0, nil
}

func funcLIST(args ...any) []any { return args }

// truthy applies conventional truthiness so IF conditions can be any
// value, not just booleans.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case unsetType:
		return false
	default:
		return true
	}
}
