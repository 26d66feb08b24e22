package subst

import "slices"

// Option configures a substitution session.
type Option func(config) config

type config struct {
	policy      Policy
	raiseErrors bool
}

func makeConfig(opts ...Option) config {
	cfg := config{policy: Policy{}}

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// WithRaiseErrors makes [Context.Evaluate] return the first
// substitution error instead of accumulating errors and substituting
// the empty string.
func WithRaiseErrors() Option {
	return func(cfg config) config {
		cfg.raiseErrors = true

		return cfg
	}
}

// WithPolicy sets the forgiveness policy for the session.
func WithPolicy(policy Policy) Option {
	return func(cfg config) config {
		cfg.policy = policy

		return cfg
	}
}

// Forgiving forgives every failure kind except cycles by substituting
// the rendered template. See [Forgive] for the template placeholders.
func Forgiving(template string) Option {
	return WithPolicy(ForgiveAll(ForgiveWith(template)))
}

// ForgivingGeneric forgives every failure kind except cycles by
// substituting a placeholder that names the failure.
func ForgivingGeneric() Option {
	return WithPolicy(ForgiveAll(ForgiveGeneric))
}

// frame is one entry of a session's location stack. Each Evaluate call
// pushes a barrier frame (nil progress) recording where the value being
// evaluated lives; each replacement-field lookup pushes a progress
// frame that grows segment by segment as the reference path resolves.
// Two progress frames reaching the same path mean the reference chain
// has looped.
type frame struct {
	progress []string // nil marks an evaluation barrier
	origin   []string
}

// Context is an explicit substitution session. Obtain one from [Enter],
// evaluate values through it, and call the release function when done;
// errors accumulate on the context across evaluations.
//
// A Context is not safe for concurrent use.
type Context struct {
	ns       *Namespace
	cfg      config
	frames   []frame
	errs     []error
	forgiven []string
	active   bool
}

// Enter opens a substitution session over ns. The returned release
// function deactivates the session; evaluating afterwards returns
// [ErrInactiveSession].
func Enter(ns *Namespace, opts ...Option) (*Context, func()) {
	c := &Context{ns: ns, cfg: makeConfig(opts...), active: true}

	return c, func() { c.active = false }
}

// With runs fn inside a substitution session, releasing it afterwards.
func With(ns *Namespace, fn func(*Context) error, opts ...Option) error {
	c, done := Enter(ns, opts...)
	defer done()

	return fn(c)
}

// Errors returns the substitution errors accumulated so far.
func (c *Context) Errors() []error { return slices.Clone(c.errs) }

// Forgiven returns the locations whose failures were absorbed by the
// forgiveness policy.
func (c *Context) Forgiven() []string { return slices.Clone(c.forgiven) }

// Reset clears accumulated errors and forgiven locations, letting one
// session serve several independent evaluations.
func (c *Context) Reset() { c.errs, c.forgiven = nil, nil }

// Err returns nil when no errors accumulated, or an [*ErrorList]
// aggregating them.
func (c *Context) Err() error {
	if len(c.errs) == 0 {
		return nil
	}

	return &ErrorList{Errors: slices.Clone(c.errs)}
}
