package conf

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// Decode parses YAML source into a Mapping, preserving document key
// order. The document root must be a mapping.
func Decode(data []byte) (*Mapping, error) {
	var doc any

	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, ErrDecodeConfig.Wrap(err)
	}

	if doc == nil {
		return NewMapping(), nil
	}

	node, ok := fromYAML(doc).(*Mapping)
	if !ok {
		return nil, ErrNotMapping
	}

	return node, nil
}

// Encode renders node as YAML, preserving key order.
func Encode(node *Mapping) ([]byte, error) {
	data, err := yaml.MarshalWithOptions(toYAML(node), yaml.Indent(2))
	if err != nil {
		return nil, WrapError(err)
	}

	return data, nil
}

// EncodeJSON renders node as JSON, preserving key order.
func EncodeJSON(node *Mapping) ([]byte, error) {
	data, err := Encode(node)
	if err != nil {
		return nil, err
	}

	out, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, WrapError(err)
	}

	return out, nil
}

// fromYAML converts the decoder's generic value tree into the Mapping
// value model. Non-string keys are stringified.
func fromYAML(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := NewMapping()
		for _, item := range t {
			key, ok := item.Key.(string)
			if !ok {
				key = fmt.Sprint(item.Key)
			}

			m.Set(key, fromYAML(item.Value))
		}

		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = fromYAML(e)
		}

		return s
	default:
		return v
	}
}

// toYAML converts a Mapping value tree back into the encoder's ordered
// representation.
func toYAML(v any) any {
	switch t := v.(type) {
	case *Mapping:
		ms := make(yaml.MapSlice, 0, t.Len())
		for k, val := range t.All() {
			ms = append(ms, yaml.MapItem{Key: k, Value: toYAML(val)})
		}

		return ms
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = toYAML(e)
		}

		return s
	default:
		return v
	}
}
