package conf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Directive keys recognized inside mapping nodes.
const (
	IncludeKey    = "_include"
	UseKey        = "_use"
	FlattenKey    = "_flatten"
	FlattenSepKey = "_flatten_sep"
)

// maxResolveDepth caps the number of fixed-point iterations spent
// resolving directives within a single node. Directive chains deeper
// than this almost always indicate mutual inclusion.
const maxResolveDepth = 20

// defaultFlattenSep joins key segments when a _flatten directive does
// not name its own separator.
const defaultFlattenSep = "__"

// Deps is the set of files a loaded config was assembled from.
type Deps map[string]struct{}

// Add records path (made absolute when possible) in the set.
func (d Deps) Add(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	d[path] = struct{}{}
}

// Update merges other into the set.
func (d Deps) Update(other Deps) {
	for p := range other {
		d[p] = struct{}{}
	}
}

// Paths returns the recorded file paths, sorted.
func (d Deps) Paths() []string {
	paths := make([]string, 0, len(d))
	for p := range d {
		paths = append(paths, p)
	}

	slices.Sort(paths)

	return paths
}

// Load reads the YAML file at path and resolves its directives,
// returning the assembled tree along with the set of files it was
// built from. The input trees supplied via [WithSources] are never
// modified; merging copies on write.
func Load(path string, opts ...Option) (*Mapping, Deps, error) {
	cfg := makeConfig(opts...)
	if cfg.name == "" {
		cfg.name = path
	}

	deps := Deps{}

	node, err := loadFile(path, cfg, deps)
	if err != nil {
		return nil, nil, err
	}

	cfg.logger.Trace("config loaded",
		slog.String("name", cfg.name),
		slog.Int("deps", len(deps)),
	)

	return node, deps, nil
}

// LoadNested loads several files into named sections of one tree.
// Each file becomes a section keyed by its base name (sans extension),
// or by the value of the [WithNameKey] key when that option is given.
// Later files may reference sections of earlier ones through _use.
func LoadNested(paths []string, opts ...Option) (*Mapping, Deps, error) {
	cfg := makeConfig(opts...)
	deps := Deps{}
	out := NewMapping()

	for _, path := range paths {
		sub := cfg
		sub.name = path
		sub.sources = append([]*Mapping{out}, cfg.sources...)

		node, err := loadFile(path, sub, deps)
		if err != nil {
			return nil, nil, err
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		if cfg.nameKey != "" {
			raw, ok := node.Take(cfg.nameKey)
			if !ok {
				return nil, nil, ErrBadDirective.With(
					slog.String("key", cfg.nameKey),
					slog.String("path", path),
				)
			}

			name = fmt.Sprint(raw)
		}

		if out.Has(name) {
			return nil, nil, ErrDuplicateSection.With(
				slog.String("section", name),
				slog.String("path", path),
			)
		}

		out.Set(name, node)
	}

	return out, deps, nil
}

func loadFile(path string, cfg config, deps Deps) (*Mapping, error) {
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}

	// A file including itself, directly or through intermediaries,
	// would otherwise recurse without bound.
	if slices.Contains(cfg.stack, abs) {
		return nil, ErrRecursionLimit.With(
			slog.String("path", path),
			slog.String("chain", strings.Join(cfg.stack, " -> ")),
		)
	}

	cfg.stack = append(cfg.stack, abs)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadConfig.Wrap(err).With(slog.String("path", path))
	}

	node, err := Decode(data)
	if err != nil {
		ee := &Error{}
		if errors.As(err, &ee) {
			return nil, ee.With(slog.String("path", path))
		}

		return nil, err
	}

	deps.Add(path)

	ld := &loader{cfg: cfg, deps: deps, dir: filepath.Dir(path)}

	return ld.mapping(node, cfg.location, cfg.sources)
}

// loader resolves directives within one file. Includes spawn fresh
// loaders rooted at the included file's directory; the deps set is
// shared across all of them.
type loader struct {
	cfg  config
	deps Deps
	dir  string
}

// mapping drives the fixed-point directive loop for one node, then
// recurses into its children. The returned node is always owned by the
// loader, so in-place mutation of it is safe.
func (ld *loader) mapping(node *Mapping, location string, sources []*Mapping) (*Mapping, error) {
	flattenDepth, flattenSep, err := takeFlatten(node, location)
	if err != nil {
		return nil, err
	}

	for recurse, updated := 0, true; updated; {
		recurse++
		if recurse > maxResolveDepth {
			return nil, ErrRecursionLimit.With(slog.String("location", location))
		}

		updated = false

		if ld.cfg.includes {
			if raw, ok := node.Take(IncludeKey); ok {
				node, err = ld.include(raw, node, location, flattenDepth, flattenSep)
				if err != nil {
					return nil, err
				}

				updated = true
			}
		}

		if ld.cfg.use {
			if raw, ok := node.Take(UseKey); ok {
				node, err = ld.use(raw, node, location, sources, flattenDepth, flattenSep)
				if err != nil {
					return nil, err
				}

				updated = true
			}
		}
	}

	childSources := sources
	if ld.cfg.selfRefs {
		childSources = append([]*Mapping{node}, sources...)
	}

	for key, val := range node.All() {
		resolved, err := ld.value(val, childLocation(location, key), childSources)
		if err != nil {
			return nil, err
		}

		if resolved != nil {
			node.Set(key, resolved)
		}
	}

	return node, nil
}

// value resolves directives in nested containers. It returns nil when
// val required no changes, letting the caller skip the Set.
func (ld *loader) value(val any, location string, sources []*Mapping) (any, error) {
	switch t := val.(type) {
	case *Mapping:
		return ld.mapping(t, location, sources)
	case []any:
		for i, elem := range t {
			resolved, err := ld.value(elem, fmt.Sprintf("%s[%d]", location, i), sources)
			if err != nil {
				return nil, err
			}

			if resolved != nil {
				t[i] = resolved
			}
		}

		return nil, nil
	default:
		return nil, nil
	}
}

// include loads each named file, layers them in order, and layers node
// itself on top, so keys in node win over included content.
func (ld *loader) include(raw any, node *Mapping, location string, flattenDepth int, flattenSep string) (*Mapping, error) {
	specs, err := directiveList(raw, IncludeKey, location)
	if err != nil {
		return nil, err
	}

	accum := NewMapping()

	for _, spec := range specs {
		path, err := ResolvePath(spec, ld.dir, ld.cfg.searchPath)
		if err != nil {
			ee := &Error{}
			if errors.As(err, &ee) {
				return nil, ee.With(slog.String("location", location))
			}

			return nil, err
		}

		sub := ld.cfg
		sub.name = fmt.Sprintf("%s, included from %s", path, ld.cfg.name)
		sub.location = ""
		sub.use = false

		incl, err := loadFile(path, sub, ld.deps)
		if err != nil {
			return nil, err
		}

		ld.cfg.logger.Trace("include resolved",
			slog.String("spec", spec),
			slog.String("path", path),
			slog.String("location", location),
		)

		if ld.cfg.includePathKey != "" {
			incl.Set(ld.cfg.includePathKey, path)
		}

		incl.Flatten(flattenDepth, flattenSep)

		accum = accum.Merge(incl)
	}

	return accum.Merge(node), nil
}

// use looks up each named section across the source trees, layers them
// in order, resolves directives within the result, and layers node on
// top.
func (ld *loader) use(raw any, node *Mapping, location string, sources []*Mapping, flattenDepth int, flattenSep string) (*Mapping, error) {
	names, err := directiveList(raw, UseKey, location)
	if err != nil {
		return nil, err
	}

	base := NewMapping()

	for _, name := range names {
		section, err := lookupUse(name, sources, location)
		if err != nil {
			return nil, err
		}

		base = base.Merge(section)
	}

	childSources := sources
	if ld.cfg.selfRefs {
		childSources = append([]*Mapping{node}, sources...)
	}

	base, err = ld.mapping(base, location+"."+UseKey, childSources)
	if err != nil {
		return nil, err
	}

	base.Flatten(flattenDepth, flattenSep)

	return base.Merge(node), nil
}

func lookupUse(name string, sources []*Mapping, location string) (*Mapping, error) {
	for _, src := range sources {
		val, ok := src.Lookup(name)
		if !ok || val == nil {
			continue
		}

		section, ok := val.(*Mapping)
		if !ok {
			return nil, ErrUseNotMapping.With(
				slog.String("name", name),
				slog.String("location", location),
			)
		}

		return section, nil
	}

	err := ErrUseNotFound.With(
		slog.String("name", name),
		slog.String("location", location),
	)

	if suggest := suggestNames(name, sources); len(suggest) > 0 {
		err = err.With(slog.String("suggest", strings.Join(suggest, ", ")))
	}

	return nil, err
}

// suggestNames offers close matches for a failed _use lookup, drawn
// from the dotted key paths of every source tree.
func suggestNames(name string, sources []*Mapping) []string {
	seen := map[string]struct{}{}

	var candidates []string

	var walk func(prefix string, m *Mapping)

	walk = func(prefix string, m *Mapping) {
		for key, val := range m.All() {
			dotted := childLocation(prefix, key)
			if _, ok := seen[dotted]; !ok {
				seen[dotted] = struct{}{}

				candidates = append(candidates, dotted)
			}

			if sub, ok := val.(*Mapping); ok {
				walk(dotted, sub)
			}
		}
	}

	for _, src := range sources {
		walk("", src)
	}

	matches := fuzzy.Find(name, candidates)

	const limit = 3

	suggest := make([]string, 0, limit)
	for _, m := range matches {
		suggest = append(suggest, m.Str)
		if len(suggest) == limit {
			break
		}
	}

	return suggest
}

func takeFlatten(node *Mapping, location string) (int, string, error) {
	depth := 0

	if raw, ok := node.Take(FlattenKey); ok {
		switch t := raw.(type) {
		case int64:
			depth = int(t)
		case uint64:
			depth = int(t)
		case bool:
			if t {
				depth = 1
			}
		default:
			return 0, "", ErrBadFlatten.With(
				slog.Any("value", raw),
				slog.String("location", location),
			)
		}
	}

	sep := defaultFlattenSep

	if raw, ok := node.Take(FlattenSepKey); ok {
		s, ok := raw.(string)
		if !ok {
			return 0, "", ErrBadDirective.With(
				slog.String("key", FlattenSepKey),
				slog.Any("value", raw),
				slog.String("location", location),
			)
		}

		sep = s
	}

	return depth, sep, nil
}

func directiveList(raw any, key, location string) ([]string, error) {
	switch t := raw.(type) {
	case string:
		return []string{t}, nil
	case []any:
		list := make([]string, 0, len(t))

		for _, elem := range t {
			s, ok := elem.(string)
			if !ok {
				return nil, ErrBadDirective.With(
					slog.String("key", key),
					slog.Any("value", elem),
					slog.String("location", location),
				)
			}

			list = append(list, s)
		}

		return list, nil
	default:
		return nil, ErrBadDirective.With(
			slog.String("key", key),
			slog.Any("value", raw),
			slog.String("location", location),
		)
	}
}

func childLocation(location, key string) string {
	if location == "" {
		return key
	}

	return location + "." + key
}
