//go:build pprof

package profile

// Option adjusts a profiler control.
type Option func(control) control

// apply folds each option over c in order.
func apply(c control, opts ...Option) control {
	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// newControl constructs a control from its zero value and opts.
func newControl(opts ...Option) control {
	var c control

	return apply(c, opts...)
}
