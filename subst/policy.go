package subst

import "strings"

// Forgive describes how a failure kind is absorbed instead of being
// recorded as an error. The zero value (neither form set) forgives
// nothing and is equivalent to omitting the kind from the policy.
type Forgive struct {
	// Generic substitutes a placeholder naming the failure, such as
	// "(MissingKey: 'nothing')".
	Generic bool

	// Template substitutes the rendered template. The placeholders
	// {name}, {value}, {target} and {exc} expand to the location of
	// the value being evaluated, its raw text, the failing reference
	// path, and the failure detail.
	Template string

	// template distinguishes an empty Template from an unset one, so
	// a policy may forgive with the empty string.
	template bool
}

// ForgiveWith forgives by substituting the rendered template.
func ForgiveWith(template string) Forgive {
	return Forgive{Template: template, template: true}
}

// ForgiveGeneric forgives by substituting a placeholder that names the
// failure.
var ForgiveGeneric = Forgive{Generic: true}

func (f Forgive) forgives() bool { return f.Generic || f.template }

func (f Forgive) render(name, value, target, detail string) string {
	if f.Generic {
		return "(" + detail + ")"
	}

	return strings.NewReplacer(
		"{name}", name,
		"{value}", value,
		"{target}", target,
		"{exc}", detail,
	).Replace(f.Template)
}

// Policy maps failure kinds to forgiveness behavior. Kinds absent from
// the map are not forgiven: their failures are recorded (or raised).
type Policy map[Kind]Forgive

// ForgiveAll builds a policy applying f to every kind except
// [KindCyclic]. Cycles are forgiven only when a policy names them
// explicitly, so blanket forgiveness cannot mask a looping config.
func ForgiveAll(f Forgive) Policy {
	p := Policy{}

	for _, k := range Kinds() {
		if k == KindCyclic {
			continue
		}

		p[k] = f
	}

	return p
}
