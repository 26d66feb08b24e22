package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/ardnew/strata/cli/cmd/repl"
	"github.com/ardnew/strata/subst"
)

// Repl starts an interactive session evaluating substitution templates
// and formulas against a resolved configuration tree.
type Repl struct {
	Source string `default:"-" help:"Configuration file providing the namespace ('-' reads a literal tree from stdin)." short:"f"`

	Cache string `help:"Directory for REPL history." hidden:"" default:"${cache}"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	tree, _, err := loadTree(ctx, r.Source)
	if err != nil {
		return ErrLoadTree.Wrap(err).
			With(slog.String("source", r.Source))
	}

	return repl.Run(ctx, subst.FromConfig(tree), filepath.Join(r.Cache, "history"))
}
