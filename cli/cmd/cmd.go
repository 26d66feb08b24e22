package cmd

import (
	"context"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/strata/conf"
	"github.com/ardnew/strata/log"
)

type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type searchRootsKey struct{}

// WithSearchRoots records additional include-resolution roots given on
// the command line, consulted by every command that loads a tree.
func WithSearchRoots(ctx context.Context, roots []string) context.Context {
	return context.WithValue(ctx, searchRootsKey{}, roots)
}

func searchRootsFrom(ctx context.Context) []string {
	roots, _ := ctx.Value(searchRootsKey{}).([]string)

	return roots
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// loadTree loads and resolves the configuration file at path, honoring
// the search roots recorded on ctx. A path of "-" decodes a literal
// tree from stdin; directives in stdin input are left unresolved since
// they have no reference directory.
func loadTree(
	ctx context.Context,
	path string,
	opts ...conf.Option,
) (*conf.Mapping, conf.Deps, error) {
	opts = append([]conf.Option{conf.WithLogger(log.Default())}, opts...)

	if roots := searchRootsFrom(ctx); len(roots) > 0 {
		opts = append(opts,
			conf.WithSearchPath(conf.DefaultSearchPath(roots...)...),
		)
	}

	if path == stdinSource {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, nil, ErrLoadTree.Wrap(err)
		}

		node, err := conf.Decode(data)
		if err != nil {
			return nil, nil, err
		}

		return node, conf.Deps{}, nil
	}

	return conf.Load(path, opts...)
}
