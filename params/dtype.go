package params

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Converter coerces a raw parameter value into its declared dtype.
type Converter func(value any) (any, error)

// dtypes is the closed registry of recognized dtype names. It is
// populated once at init and never mutated afterwards.
var dtypes = map[string]Converter{
	"str":             toStr,
	"int":             toInt,
	"float":           toFloat,
	"bool":            toBool,
	"File":            toPath,
	"Directory":       toPath,
	"List[str]":       toList(toStr),
	"List[int]":       toList(toInt),
	"List[File]":      toList(toPath),
	"List[Directory]": toList(toPath),
}

// Dtypes returns the names of all recognized dtypes in sorted order.
func Dtypes() []string {
	names := make([]string, 0, len(dtypes))
	for name := range dtypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func converter(dtype string) (Converter, error) {
	conv, ok := dtypes[dtype]
	if !ok {
		return nil, ErrUnknownDtype.With(slog.String("dtype", dtype))
	}
	return conv, nil
}

func isFileDtype(dtype string) bool {
	return dtype == "File" || dtype == "Directory" ||
		dtype == "List[File]" || dtype == "List[Directory]"
}

func isListDtype(dtype string) bool {
	return strings.HasPrefix(dtype, "List[")
}

func isDirDtype(dtype string) bool {
	return dtype == "Directory" || dtype == "List[Directory]"
}

func toStr(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(value), nil
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return nil, ErrBadValue.With(
				slog.Any("value", value),
				slog.String("want", "int"),
			)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, ErrBadValue.Wrap(err).With(
				slog.String("value", v),
				slog.String("want", "int"),
			)
		}
		return n, nil
	}
	return nil, ErrBadValue.With(
		slog.Any("value", value),
		slog.String("want", "int"),
	)
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, ErrBadValue.Wrap(err).With(
				slog.String("value", v),
				slog.String("want", "float"),
			)
		}
		return f, nil
	}
	return nil, ErrBadValue.With(
		slog.Any("value", value),
		slog.String("want", "float"),
	)
}

func toBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case uint64:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, ErrBadValue.Wrap(err).With(
				slog.String("value", v),
				slog.String("want", "bool"),
			)
		}
		return b, nil
	}
	return nil, ErrBadValue.With(
		slog.Any("value", value),
		slog.String("want", "bool"),
	)
}

func toPath(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, ErrBadValue.With(
			slog.Any("value", value),
			slog.String("want", "path"),
		)
	}
	return s, nil
}

func toList(elem Converter) Converter {
	return func(value any) (any, error) {
		items, err := listItems(value)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := elem(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

// listItems accepts native sequences, and strings holding a flow-style
// sequence such as "[a, b]", which is how a substituted list renders.
func listItems(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, nil
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var items []any
			if err := yaml.Unmarshal([]byte(v), &items); err == nil {
				return items, nil
			}
		}
		return []any{v}, nil
	}
	return nil, ErrBadValue.With(
		slog.Any("value", value),
		slog.String("want", "list"),
	)
}
