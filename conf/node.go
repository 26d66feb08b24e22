package conf

import (
	"iter"
	"strings"
)

// Mapping is an insertion-ordered map of string keys to config values.
//
// Values are scalars (string, bool, int64, uint64, float64, nil),
// sequences ([]any), or nested *Mapping nodes. Iteration order always
// matches the order keys first appeared, which matters for directive
// processing and for stable output encoding.
type Mapping struct {
	keys []string
	vals map[string]any
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{vals: map[string]any{}}
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	if m == nil {
		return false
	}

	_, ok := m.vals[key]

	return ok
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}

	v, ok := m.vals[key]

	return v, ok
}

// Set stores value under key, appending key to the iteration order if it
// is not already present.
func (m *Mapping) Set(key string, value any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.vals[key] = value
}

// Delete removes key and its value, preserving the order of the rest.
func (m *Mapping) Delete(key string) {
	if m == nil {
		return
	}

	if _, ok := m.vals[key]; !ok {
		return
	}

	delete(m.vals, key)

	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)

			break
		}
	}
}

// Take removes key and returns its value, if present.
func (m *Mapping) Take(key string) (any, bool) {
	v, ok := m.Get(key)
	if ok {
		m.Delete(key)
	}

	return v, ok
}

// Keys returns an iterator over keys in insertion order.
func (m *Mapping) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		if m == nil {
			return
		}

		for _, k := range m.keys {
			if !yield(k) {
				return
			}
		}
	}
}

// All returns an iterator over key/value pairs in insertion order.
func (m *Mapping) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if m == nil {
			return
		}

		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of m. Nested mappings and sequences are
// copied recursively; scalars are shared.
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return nil
	}

	c := &Mapping{
		keys: append([]string(nil), m.keys...),
		vals: make(map[string]any, len(m.vals)),
	}

	for k, v := range m.vals {
		c.vals[k] = cloneValue(v)
	}

	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Mapping:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}

		return s
	default:
		return v
	}
}

// Merge returns a new Mapping layering overlay on top of m. Keys unique
// to either side are carried over; keys present in both take the overlay
// value, except when both values are mappings, which merge recursively.
// Sequences replace rather than merge. Neither input is modified.
func (m *Mapping) Merge(overlay *Mapping) *Mapping {
	if m.Len() == 0 {
		return overlay.Clone()
	}

	if overlay.Len() == 0 {
		return m.Clone()
	}

	out := NewMapping()

	for k, v := range m.All() {
		out.Set(k, cloneValue(v))
	}

	for k, v := range overlay.All() {
		base, ok := out.Get(k)
		if ok {
			bm, bok := base.(*Mapping)
			om, ook := v.(*Mapping)

			if bok && ook {
				out.Set(k, bm.Merge(om))

				continue
			}
		}

		out.Set(k, cloneValue(v))
	}

	return out
}

// Lookup descends a dotted path such as "a.b.c" and returns the value
// found at its end. The second result is false when any segment is
// missing or an intermediate value is not a mapping.
func (m *Mapping) Lookup(path string) (any, bool) {
	var cur any = m

	for seg := range strings.SplitSeq(path, ".") {
		node, ok := cur.(*Mapping)
		if !ok {
			return nil, false
		}

		cur, ok = node.Get(seg)
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Flatten hoists the contents of nested mappings into m, joining key
// segments with sep. A depth of 1 flattens a single level; greater
// depths flatten recursively before hoisting. Nested mapping entries are
// removed and their flattened keys appended in the order encountered.
func (m *Mapping) Flatten(depth int, sep string) {
	if m == nil || depth <= 0 {
		return
	}

	for _, k := range append([]string(nil), m.keys...) {
		sub, ok := m.vals[k].(*Mapping)
		if !ok {
			continue
		}

		m.Delete(k)

		if depth > 1 {
			sub.Flatten(depth-1, sep)
		}

		for sk, sv := range sub.All() {
			m.Set(k+sep+sk, sv)
		}
	}
}
