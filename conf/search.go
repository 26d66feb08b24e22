package conf

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/mung"

	"github.com/ardnew/strata/pkg"
)

// moduleSpec matches include specifiers of the form "(module.name)rel/path".
var moduleSpec = regexp.MustCompile(`^\(([^)]+)\)(.*)$`)

var (
	moduleMu  sync.RWMutex
	moduleDir = map[string]string{}
)

// RegisterModule binds a module name to the directory its config files
// live under. Include specifiers of the form "(name)rel/path" resolve
// rel/path against that directory. Registering the same name again
// replaces the previous binding.
func RegisterModule(name, dir string) {
	moduleMu.Lock()
	defer moduleMu.Unlock()

	moduleDir[name] = dir
}

// LookupModule returns the directory registered for name.
func LookupModule(name string) (string, bool) {
	moduleMu.RLock()
	defer moduleMu.RUnlock()

	dir, ok := moduleDir[name]

	return dir, ok
}

// ModuleNames returns the registered module names, sorted.
func ModuleNames() []string {
	moduleMu.RLock()
	defer moduleMu.RUnlock()

	names := make([]string, 0, len(moduleDir))
	for name := range moduleDir {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// DefaultSearchPath assembles the include search roots from the
// process environment. Entries come from the PATH-like variable named
// by [pkg.EnvPath] (prefixed by any roots given here), with the current
// directory always appended last.
func DefaultSearchPath(roots ...string) []string {
	sep := string(os.PathListSeparator)

	joined := mung.Make(
		mung.WithSubjectItems(os.Getenv(pkg.EnvPath())),
		mung.WithDelim(sep),
		mung.WithPrefixItems(roots...),
		mung.WithFilter(func(item string) bool { return item != "" }),
	).String()

	var path []string

	for _, p := range strings.Split(joined, sep) {
		if p != "" {
			path = append(path, p)
		}
	}

	return append(path, ".")
}

// ResolvePath locates the file named by an include specifier.
//
// A "(module)rel/path" specifier resolves rel/path against the
// registered module directory and must exist there. An absolute path is
// used as-is. Anything else is tried relative to refDir (the directory
// of the including file) and then against each search root in order.
// The first existing candidate wins.
func ResolvePath(spec, refDir string, searchPath []string) (string, error) {
	if spec == "" {
		return "", ErrEmptyInclude
	}

	if m := moduleSpec.FindStringSubmatch(spec); m != nil {
		return resolveModulePath(m[1], m[2])
	}

	if filepath.IsAbs(spec) {
		if fileExists(spec) {
			return spec, nil
		}

		return "", ErrIncludeNotFound.With(slog.String("path", spec))
	}

	tried := make([]string, 0, len(searchPath)+1)

	for _, root := range append([]string{refDir}, searchPath...) {
		if root == "" {
			continue
		}

		candidate := filepath.Join(root, spec)
		if fileExists(candidate) {
			return candidate, nil
		}

		tried = append(tried, candidate)
	}

	return "", ErrIncludeNotFound.With(
		slog.String("include", spec),
		slog.String("tried", strings.Join(tried, ", ")),
	)
}

func resolveModulePath(name, rel string) (string, error) {
	dir, ok := LookupModule(name)
	if !ok {
		return "", ErrModuleNotFound.With(
			slog.String("module", name),
			slog.String("registered", strings.Join(ModuleNames(), ", ")),
		)
	}

	candidate := filepath.Join(dir, rel)
	if !fileExists(candidate) {
		return "", ErrIncludeNotFound.With(
			slog.String("module", name),
			slog.String("path", candidate),
		)
	}

	return candidate, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
