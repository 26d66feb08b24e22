package params

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ardnew/strata/conf"
	"github.com/ardnew/strata/subst"
	"github.com/goccy/go-yaml"
)

// Policies adjusts how a single parameter is processed.
type Policies struct {
	// DisableSubstitutions leaves the raw value untouched by the
	// substitution pass.
	DisableSubstitutions bool
}

// Schema describes one parameter: its dtype name (see [Dtypes]),
// whether it is required, its default, the allowed choices, and
// filesystem policies for File and Directory dtypes.
type Schema struct {
	Dtype     string
	Required  bool
	Default   any
	Choices   []any
	MustExist *bool // nil defers to the validator's existence policy
	Mkdir     bool
	Policies  Policies
}

// Option configures a [Validate] call.
type Option func(config) config

type config struct {
	prefix           string
	ns               *subst.Namespace
	defaults         map[string]any
	checkUnknowns    bool
	checkRequired    bool
	checkExist       bool
	expandGlobs      bool
	createDirs       bool
	ignoreSubstFails bool
}

func makeConfig(opts ...Option) config {
	cfg := config{
		checkUnknowns: true,
		checkRequired: true,
		checkExist:    true,
		expandGlobs:   true,
	}
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// WithPrefix qualifies parameter names in error reports.
func WithPrefix(prefix string) Option {
	return func(cfg config) config { cfg.prefix = prefix; return cfg }
}

// WithNamespace enables the substitution pass: string values are
// evaluated in a session over ns before dtype conversion.
func WithNamespace(ns *subst.Namespace) Option {
	return func(cfg config) config { cfg.ns = ns; return cfg }
}

// WithDefaults supplies fallback values consulted before each schema's
// own default.
func WithDefaults(defaults map[string]any) Option {
	return func(cfg config) config { cfg.defaults = defaults; return cfg }
}

// WithoutUnknownCheck accepts parameters absent from the schema set.
func WithoutUnknownCheck() Option {
	return func(cfg config) config { cfg.checkUnknowns = false; return cfg }
}

// WithoutRequiredCheck skips the missing-required-parameters check.
func WithoutRequiredCheck() Option {
	return func(cfg config) config { cfg.checkRequired = false; return cfg }
}

// WithoutExistenceCheck only requires files to exist when their schema
// sets MustExist explicitly.
func WithoutExistenceCheck() Option {
	return func(cfg config) config { cfg.checkExist = false; return cfg }
}

// WithoutGlobExpansion treats File and Directory values literally.
func WithoutGlobExpansion() Option {
	return func(cfg config) config { cfg.expandGlobs = false; return cfg }
}

// WithCreateDirs creates missing parent directories of File and
// Directory values, and the directories of Mkdir parameters.
func WithCreateDirs() Option {
	return func(cfg config) config { cfg.createDirs = true; return cfg }
}

// WithIgnoreSubstErrors converts per-parameter substitution failures
// into [subst.Unresolved] values instead of failing the validation.
func WithIgnoreSubstErrors() Option {
	return func(cfg config) config { cfg.ignoreSubstFails = true; return cfg }
}

// Validate checks values against schemas and returns the validated
// parameter set: unknown-parameter check, default filling, the
// substitution pass, dtype conversion, choice checking, and File and
// Directory handling, in that order. Parameters whose substitutions
// failed under [WithIgnoreSubstErrors] come back as [subst.Unresolved].
func Validate(values map[string]any, schemas map[string]Schema, opts ...Option) (map[string]any, error) {
	cfg := makeConfig(opts...)

	if cfg.checkUnknowns {
		for _, name := range sortedKeys(values) {
			if _, ok := schemas[name]; !ok {
				return nil, ErrUnknownParameter.With(
					slog.String("name", cfg.qualify(name)),
				)
			}
		}
	}

	inputs := make(map[string]any, len(values))
	for name, value := range values {
		inputs[name] = value
	}

	for name, schema := range schemas {
		if _, ok := inputs[name]; ok {
			continue
		}
		if v, ok := cfg.defaults[name]; ok {
			inputs[name] = v
		} else if schema.Default != nil {
			inputs[name] = schema.Default
		}
	}

	if cfg.ns != nil {
		if err := cfg.substitute(inputs, schemas); err != nil {
			return nil, err
		}
	}

	// Unresolved values skip conversion and checks entirely.
	unresolved := make(map[string]any)
	for name, value := range inputs {
		if u, ok := value.(subst.Unresolved); ok {
			unresolved[name] = u
			delete(inputs, name)
		}
	}

	if cfg.checkRequired {
		var missing []string
		for _, name := range sortedKeys(schemas) {
			if !schemas[name].Required {
				continue
			}
			_, have := inputs[name]
			_, deferred := unresolved[name]
			if !have && !deferred {
				missing = append(missing, cfg.qualify(name))
			}
		}
		if len(missing) > 0 {
			return nil, ErrMissingRequired.With(
				slog.String("names", strings.Join(missing, ", ")),
			)
		}
	}

	validated := make(map[string]any, len(inputs)+len(unresolved))
	for _, name := range sortedKeys(inputs) {
		schema, ok := schemas[name]
		if !ok {
			validated[name] = inputs[name]
			continue
		}
		value, err := cfg.check(name, inputs[name], schema)
		if err != nil {
			return nil, err
		}
		validated[name] = value
	}

	for name, value := range unresolved {
		validated[name] = value
	}

	return validated, nil
}

func (cfg config) qualify(name string) string {
	if cfg.prefix == "" {
		return name
	}

	return cfg.prefix + "." + name
}

// substitute evaluates each schema-known input in one session over the
// configured namespace. With ignoreSubstFails, a parameter whose
// evaluation recorded errors becomes an [subst.Unresolved] carrying
// them; otherwise any accumulated errors fail the whole pass.
func (cfg config) substitute(inputs map[string]any, schemas map[string]Schema) error {
	return subst.With(cfg.ns, func(c *subst.Context) error {
		for _, name := range sortedKeys(inputs) {
			schema, ok := schemas[name]
			if !ok || schema.Policies.DisableSubstitutions {
				continue
			}
			loc := []string{name}
			if cfg.prefix != "" {
				loc = []string{cfg.prefix, name}
			}
			value, err := c.Evaluate(inputs[name], loc...)
			if err != nil {
				return err
			}
			if cfg.ignoreSubstFails && len(c.Errors()) > 0 {
				inputs[name] = subst.Unresolved{
					Value:  fmt.Sprint(inputs[name]),
					Errors: c.Errors(),
				}
				c.Reset()
				continue
			}
			inputs[name] = value
		}

		return c.Err()
	})
}

// check applies dtype conversion and the per-parameter checks to one
// value.
func (cfg config) check(name string, value any, schema Schema) (any, error) {
	conv, err := converter(schema.Dtype)
	if err != nil {
		return nil, named(err, cfg.qualify(name))
	}

	if isFileDtype(schema.Dtype) {
		value, err = cfg.checkFiles(name, value, schema)
		if err != nil {
			return nil, err
		}
	}

	out, err := conv(value)
	if err != nil {
		return nil, named(err, cfg.qualify(name))
	}

	if len(schema.Choices) > 0 && !allowed(out, schema.Choices) {
		return nil, ErrBadChoice.With(
			slog.String("name", cfg.qualify(name)),
			slog.Any("value", out),
		)
	}

	if cfg.createDirs && schema.Mkdir {
		if s, ok := out.(string); ok {
			if dir := filepath.Dir(s); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, ErrBadValue.Wrap(err).With(
						slog.String("name", cfg.qualify(name)),
					)
				}
			}
		}
	}

	return out, nil
}

// checkFiles expands globs and enforces existence and file-kind checks
// for File and Directory dtypes. Single-file dtypes yield a string,
// list dtypes a slice.
func (cfg config) checkFiles(name string, value any, schema Schema) (any, error) {
	mustExist := cfg.checkExist
	if schema.MustExist != nil {
		mustExist = *schema.MustExist
	}

	files, err := cfg.fileList(name, value)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		if mustExist {
			return nil, ErrNoFiles.With(
				slog.String("name", cfg.qualify(name)),
				slog.Any("value", value),
			)
		}
		if isListDtype(schema.Dtype) {
			return []any{value}, nil
		}
		return value, nil
	}

	if mustExist {
		var absent []string
		for _, f := range files {
			if _, err := os.Stat(f); err != nil {
				absent = append(absent, f)
			}
		}
		if len(absent) > 0 {
			return nil, ErrMissingFile.With(
				slog.String("name", cfg.qualify(name)),
				slog.String("paths", strings.Join(absent, ", ")),
			)
		}
	}

	wantDir := isDirDtype(schema.Dtype)
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if wantDir && !info.IsDir() {
			return nil, ErrNotDirectory.With(
				slog.String("name", cfg.qualify(name)),
				slog.String("path", f),
			)
		}
		if !wantDir && info.IsDir() {
			return nil, ErrNotFile.With(
				slog.String("name", cfg.qualify(name)),
				slog.String("path", f),
			)
		}
	}

	if !isListDtype(schema.Dtype) {
		if len(files) > 1 {
			return nil, ErrMultipleFiles.With(
				slog.String("name", cfg.qualify(name)),
				slog.Any("value", value),
			)
		}
		if cfg.createDirs {
			if dir := filepath.Dir(files[0]); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, ErrBadValue.Wrap(err).With(
						slog.String("name", cfg.qualify(name)),
					)
				}
			}
		}
		return files[0], nil
	}

	out := make([]any, len(files))
	for i, f := range files {
		out[i] = f
	}

	return out, nil
}

// fileList normalizes a File or Directory value to path strings. A
// string holding a flow-style sequence is decoded as a list, which is
// how a substituted list renders; otherwise it is a glob pattern.
func (cfg config) fileList(name string, value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var items []string
			if err := yaml.Unmarshal([]byte(v), &items); err == nil {
				return items, nil
			}
		}
		if !cfg.expandGlobs {
			return []string{v}, nil
		}
		matches, err := filepath.Glob(v)
		if err != nil {
			return nil, ErrBadValue.Wrap(err).With(
				slog.String("name", cfg.qualify(name)),
				slog.String("pattern", v),
			)
		}
		slices.Sort(matches)
		return matches, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ErrBadValue.With(
					slog.String("name", cfg.qualify(name)),
					slog.Any("value", item),
					slog.String("want", "path"),
				)
			}
			out[i] = s
		}
		return out, nil
	case []string:
		return slices.Clone(v), nil
	}

	return nil, ErrBadValue.With(
		slog.String("name", cfg.qualify(name)),
		slog.Any("value", value),
		slog.String("want", "path"),
	)
}

func allowed(value any, choices []any) bool {
	return slices.ContainsFunc(choices, func(c any) bool {
		return c == value || fmt.Sprint(c) == fmt.Sprint(value)
	})
}

// named attaches the qualified parameter name to validation errors.
func named(err error, name string) error {
	var e *conf.Error
	if errors.As(err, &e) {
		return e.With(slog.String("name", name))
	}

	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
