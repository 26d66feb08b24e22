package cli

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func flagNamed(name string) *kong.Flag {
	return &kong.Flag{Value: &kong.Value{Name: name}}
}

func resolverFor(t *testing.T, src string) kong.Resolver {
	t.Helper()

	r, err := resolve(strings.NewReader(src))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	return r
}

func TestResolverLookup(t *testing.T) {
	r := resolverFor(t, "log-level: debug\nlog_format: json\n")

	v, err := r.Resolve(nil, nil, flagNamed("log-level"))
	if err != nil || v != "debug" {
		t.Errorf("log-level = %v (%v), want debug", v, err)
	}

	// Underscore fallback for hyphenated flag names.
	v, err = r.Resolve(nil, nil, flagNamed("log-format"))
	if err != nil || v != "json" {
		t.Errorf("log-format = %v (%v), want json via underscore key", v, err)
	}

	v, err = r.Resolve(nil, nil, flagNamed("absent"))
	if err != nil || v != nil {
		t.Errorf("absent = %v (%v), want nil", v, err)
	}
}

func TestResolverNumbersAsStrings(t *testing.T) {
	r := resolverFor(t, "width: 42\nratio: 1.5\n")

	v, _ := r.Resolve(nil, nil, flagNamed("width"))
	if v != "42" {
		t.Errorf("width = %v (%T), want \"42\"", v, v)
	}

	v, _ = r.Resolve(nil, nil, flagNamed("ratio"))
	if v != "1.5" {
		t.Errorf("ratio = %v (%T), want \"1.5\"", v, v)
	}
}

func TestResolverBadInput(t *testing.T) {
	r := resolverFor(t, "- not\n- a\n- mapping\n")

	v, err := r.Resolve(nil, nil, flagNamed("anything"))
	if err != nil || v != nil {
		t.Errorf("bad input should resolve nothing, got %v (%v)", v, err)
	}
}

func TestLogConfigScan(t *testing.T) {
	var cfg logConfig

	cfg.scan([]string{"--log-level", "debug", "--no-log-pretty", "--log-caller=true"})

	if cfg.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty = true, want false from --no-log-pretty")
	}
	if !cfg.Caller {
		t.Error("Caller = false, want true from --log-caller=true")
	}
}
