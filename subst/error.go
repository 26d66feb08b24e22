package subst

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInactiveSession is returned by [Context.Evaluate] after the
// session's release function has run.
var ErrInactiveSession = errors.New("substitution invoked outside of an active session")

// Kind classifies substitution failures for error reporting and for
// forgiveness policies.
type Kind int

const (
	KindNone Kind = iota

	// KindMissingKey covers references whose path could not be
	// resolved in the namespace.
	KindMissingKey

	// KindCyclic covers references that lead back to a location
	// already being substituted.
	KindCyclic

	// KindFormat covers malformed templates and format specs that do
	// not apply to the resolved value.
	KindFormat

	// KindEval covers failures reported by collaborating evaluators
	// for values fetched during substitution.
	KindEval
)

func (k Kind) String() string {
	switch k {
	case KindMissingKey:
		return "MissingKey"
	case KindCyclic:
		return "Cyclic"
	case KindFormat:
		return "Format"
	case KindEval:
		return "Eval"
	default:
		return "None"
	}
}

// Kinds returns every failure kind a policy may forgive.
func Kinds() []Kind {
	return []Kind{KindMissingKey, KindCyclic, KindFormat, KindEval}
}

// SubstitutionError describes one failed substitution: which reference
// failed (Target), inside which value (Location, Value), and why.
type SubstitutionError struct {
	Kind     Kind
	Target   string // dotted path of the reference that failed
	Location string // dotted location of the value being evaluated
	Value    string // the raw template string
	cause    error
}

// Error renders the failure with enough context to find the offending
// value: "'{x.y}' unresolved, in name='{x.y} suffix'".
func (e *SubstitutionError) Error() string {
	locstr := fmt.Sprintf("'%s'", e.Value)
	if e.Location != "" {
		locstr = fmt.Sprintf("%s='%s'", e.Location, e.Value)
	}

	switch e.Kind {
	case KindMissingKey:
		if e.cause != nil {
			return fmt.Sprintf("'{%s}' unresolved: %v, in %s", e.Target, e.cause, locstr)
		}

		return fmt.Sprintf("'{%s}' unresolved, in %s", e.Target, locstr)
	case KindCyclic:
		return fmt.Sprintf("{%s}: %v, in %s", e.Target, e.cause, locstr)
	default:
		return fmt.Sprintf("%s at {%s}: %v, in %s", e.Kind, e.Target, e.cause, locstr)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *SubstitutionError) Unwrap() error { return e.cause }

// CyclicError is the cause recorded when a reference chain loops back
// on itself. Location is the reference being resolved; Other is the
// location that first started resolving it.
type CyclicError struct {
	Location string
	Other    string
}

func (e *CyclicError) Error() string {
	return fmt.Sprintf("'{%s}' is a cyclic substitution", e.Location)
}

// ErrorList aggregates the substitution errors accumulated over a
// session, for callers that want one error value covering all of them.
type ErrorList struct {
	Errors []error
}

func (e *ErrorList) Error() string {
	return fmt.Sprintf("%d substitution error(s)", len(e.Errors))
}

// Unwrap exposes the individual errors for errors.Is/As.
func (e *ErrorList) Unwrap() []error { return e.Errors }

// ErrorString is a string value that records an upstream failure.
// The evaluator passes such values through untouched instead of
// scanning them for replacement fields.
type ErrorString string

func (e ErrorString) String() string { return string(e) }

// Unresolved marks a value whose substitutions could not be completed,
// carrying the errors that prevented it. It stands in for the value so
// downstream consumers can tell "failed" from "absent".
type Unresolved struct {
	Value  string
	Errors []error
}

func (u Unresolved) String() string {
	if u.Value != "" {
		return fmt.Sprintf("Unresolved(%s)", u.Value)
	}

	msgs := make([]string, len(u.Errors))
	for i, err := range u.Errors {
		msgs[i] = err.Error()
	}

	return fmt.Sprintf("Unresolved(%s)", strings.Join(msgs, "; "))
}
