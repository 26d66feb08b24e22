package conf

import (
	"github.com/ardnew/strata/log"
)

// Option configures a call to [Load] or [LoadNested].
type Option func(config) config

type config struct {
	name           string
	location       string
	includePathKey string
	nameKey        string
	searchPath     []string
	sources        []*Mapping
	stack          []string
	logger         log.Logger
	includes       bool
	use            bool
	selfRefs       bool
}

func makeConfig(opts ...Option) config {
	cfg := config{
		includes: true,
		use:      true,
		selfRefs: true,
	}

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if cfg.searchPath == nil {
		cfg.searchPath = DefaultSearchPath()
	}

	return cfg
}

// WithName sets the name used to describe this config in errors and
// log messages. Defaults to the file path.
func WithName(name string) Option {
	return func(cfg config) config {
		cfg.name = name

		return cfg
	}
}

// WithLocation sets the dotted location prefix reported for nodes in
// this config.
func WithLocation(location string) Option {
	return func(cfg config) config {
		cfg.location = location

		return cfg
	}
}

// WithLogger sets the logger used to trace directive resolution. The
// zero Logger discards everything.
func WithLogger(logger log.Logger) Option {
	return func(cfg config) config {
		cfg.logger = logger

		return cfg
	}
}

// WithSearchPath replaces the include search roots. Without this
// option, roots come from [DefaultSearchPath].
func WithSearchPath(roots ...string) Option {
	return func(cfg config) config {
		cfg.searchPath = roots

		return cfg
	}
}

// WithSources supplies the config trees consulted, in order, by _use
// directives.
func WithSources(sources ...*Mapping) Option {
	return func(cfg config) config {
		cfg.sources = sources

		return cfg
	}
}

// WithIncludePathKey records the resolved path of every included file
// under key in the included subtree.
func WithIncludePathKey(key string) Option {
	return func(cfg config) config {
		cfg.includePathKey = key

		return cfg
	}
}

// WithNameKey tells [LoadNested] to take each section's name from the
// given key inside the loaded file instead of the file's base name.
func WithNameKey(key string) Option {
	return func(cfg config) config {
		cfg.nameKey = key

		return cfg
	}
}

// WithoutIncludes disables _include processing. Directives are left in
// the tree untouched.
func WithoutIncludes() Option {
	return func(cfg config) config {
		cfg.includes = false

		return cfg
	}
}

// WithoutUse disables _use processing.
func WithoutUse() Option {
	return func(cfg config) config {
		cfg.use = false

		return cfg
	}
}

// WithoutSelfRefs stops nested nodes from resolving _use references
// against their own enclosing tree.
func WithoutSelfRefs() Option {
	return func(cfg config) config {
		cfg.selfRefs = false

		return cfg
	}
}
