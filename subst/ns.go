package subst

import (
	"slices"

	"github.com/ardnew/strata/conf"
)

// AddOption configures an entry added to a [Namespace].
type AddOption func(addConfig) addConfig

type addConfig struct {
	nosubst bool
}

// WithNoSubst marks the added subtree as opaque: values fetched from
// it are returned verbatim, without substitution of their contents.
// Opacity is inherited by nested namespaces.
func WithNoSubst() AddOption {
	return func(cfg addConfig) addConfig {
		cfg.nosubst = true

		return cfg
	}
}

// Namespace holds the values that replacement fields resolve against.
// Entries keep insertion order. Mapping-like values are converted to
// nested namespaces on Add, so dotted references can descend through
// them.
type Namespace struct {
	nosubst bool
	keys    []string
	vals    map[string]any
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{vals: map[string]any{}}
}

// Add stores value under key. A *conf.Mapping or map[string]any value
// becomes a nested *Namespace, inheriting this namespace's opacity
// unless [WithNoSubst] overrides it.
func (ns *Namespace) Add(key string, value any, opts ...AddOption) {
	cfg := addConfig{}
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	nosubst := cfg.nosubst || ns.nosubst

	switch t := value.(type) {
	case *conf.Mapping:
		sub := NewNamespace()
		sub.nosubst = nosubst

		for k, v := range t.All() {
			sub.Add(k, v)
		}

		value = sub
	case map[string]any:
		sub := NewNamespace()
		sub.nosubst = nosubst

		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}

		slices.Sort(keys)

		for _, k := range keys {
			sub.Add(k, t[k])
		}

		value = sub
	case *Namespace:
		if nosubst && !t.nosubst {
			t = t.clone()
			t.markNoSubst()
		}

		value = t
	}

	if _, ok := ns.vals[key]; !ok {
		ns.keys = append(ns.keys, key)
	}

	ns.vals[key] = value
}

// Value returns the raw entry stored under key, without substitution.
func (ns *Namespace) Value(key string) (any, bool) {
	v, ok := ns.vals[key]

	return v, ok
}

// Has reports whether key is present.
func (ns *Namespace) Has(key string) bool {
	_, ok := ns.vals[key]

	return ok
}

// Keys returns the entry keys in insertion order.
func (ns *Namespace) Keys() []string {
	return slices.Clone(ns.keys)
}

// Merge recursively folds other's entries into ns. Entries that are
// namespaces on both sides merge; anything else is replaced.
func (ns *Namespace) Merge(other *Namespace) {
	for _, key := range other.keys {
		val := other.vals[key]

		if old, ok := ns.vals[key]; ok {
			oldNS, oldOK := old.(*Namespace)
			newNS, newOK := val.(*Namespace)

			if oldOK && newOK {
				oldNS.Merge(newNS)

				continue
			}
		}

		ns.Add(key, val)
	}
}

func (ns *Namespace) clone() *Namespace {
	c := &Namespace{
		nosubst: ns.nosubst,
		keys:    slices.Clone(ns.keys),
		vals:    make(map[string]any, len(ns.vals)),
	}

	for k, v := range ns.vals {
		if sub, ok := v.(*Namespace); ok {
			v = sub.clone()
		}

		c.vals[k] = v
	}

	return c
}

func (ns *Namespace) markNoSubst() {
	ns.nosubst = true

	for _, v := range ns.vals {
		if sub, ok := v.(*Namespace); ok {
			sub.markNoSubst()
		}
	}
}

// FromConfig builds a namespace from a config tree, converting nested
// mappings into nested namespaces.
func FromConfig(m *conf.Mapping, opts ...AddOption) *Namespace {
	ns := NewNamespace()

	for k, v := range m.All() {
		ns.Add(k, v, opts...)
	}

	return ns
}
