package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/strata/conf"
)

// resolve is a [kong.ConfigurationLoader] that reads flag defaults from
// a strata configuration tree.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve, "/path/to/config.yaml")
//
// The tree is decoded without directive resolution, and flags are
// looked up by dotted path. Flag names with hyphens (e.g. "log-level")
// may use underscores in the config file (e.g. "log_level").
//
// Example config file:
//
//	log_level: debug
//	log_format: json
//	log_pretty: true
//
// This configuration will be applied to Kong flags:
//
//	--log-level=debug
//	--log-format=json
//	--log-pretty=true
//
// Command-line flags override config file values.
func resolve(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		// Unreadable config - return empty config
		return config{}, nil
	}

	node, err := conf.Decode(data)
	if err != nil {
		// Decode error - return empty config
		return config{}, nil
	}

	return config{node: node}, nil
}

// config implements [kong.Resolver] over a decoded tree.
type config struct {
	node *conf.Mapping
}

// Validate implements [kong.Resolver].
func (c config) Validate(*kong.Application) error {
	// No validation needed - the tree was already decoded successfully
	return nil
}

// Resolve implements [kong.Resolver].
func (c config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if c.node == nil {
		return nil, nil
	}

	// Kong flags use hyphens (e.g., "log-level") but config keys may use
	// underscores. Try both forms.
	for _, name := range []string{
		flag.Name,
		strings.ReplaceAll(flag.Name, "-", "_"),
	} {
		if value, ok := c.node.Lookup(name); ok {
			return flagValue(value), nil
		}
	}

	// Not found - return nil to let Kong use defaults
	return nil, nil
}

// flagValue converts a decoded value into a form Kong can parse.
// Kong requires numbers as strings.
func flagValue(value any) any {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	return value
}
