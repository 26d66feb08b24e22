package log

// Option adjusts a logger config.
type Option func(config) config

// apply folds each option over cfg in order.
func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}
