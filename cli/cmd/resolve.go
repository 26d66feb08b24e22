package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ardnew/strata/conf"
)

// Resolve loads a configuration file, resolves its directives, and
// prints the assembled tree.
type Resolve struct {
	Source string `arg:"" help:"Configuration file to load" name:"source" type:"existingfile"`

	Format     string `default:"yaml" enum:"yaml,json"                                 help:"Output format."                                 short:"F"`
	Deps       bool   `               help:"List the files the tree was assembled from instead of the tree."`
	Flatten    int    `default:"0"    help:"Flatten nested mappings to the given depth."`
	FlattenSep string `default:"__"   help:"Separator joining flattened keys."          name:"flatten-sep"`
	NoIncludes bool   `               help:"Leave _include directives unresolved."      name:"no-includes"`
	NoUse      bool   `               help:"Leave _use directives unresolved."          name:"no-use"`
}

// Run executes the resolve command.
func (r *Resolve) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	var opts []conf.Option
	if r.NoIncludes {
		opts = append(opts, conf.WithoutIncludes())
	}

	if r.NoUse {
		opts = append(opts, conf.WithoutUse())
	}

	tree, deps, err := loadTree(ctx, r.Source, opts...)
	if err != nil {
		return ErrLoadTree.Wrap(err).
			With(slog.String("source", r.Source))
	}

	if r.Deps {
		for _, path := range deps.Paths() {
			fmt.Println(path)
		}

		return nil
	}

	if r.Flatten > 0 {
		tree.Flatten(r.Flatten, r.FlattenSep)
	}

	var out []byte

	switch r.Format {
	case "json":
		out, err = conf.EncodeJSON(tree)
	default:
		out, err = conf.Encode(tree)
	}

	if err != nil {
		return ErrEncodeTree.Wrap(err).
			With(slog.String("format", r.Format))
	}

	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	_, err = os.Stdout.Write(out)

	return err
}
