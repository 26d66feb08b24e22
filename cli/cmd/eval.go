package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/ardnew/strata/conf"
	"github.com/ardnew/strata/formula"
	"github.com/ardnew/strata/pkg"
	"github.com/ardnew/strata/subst"
)

// Eval resolves a configuration file into a namespace and evaluates
// substitution templates (or the whole tree) against it.
type Eval struct {
	Templates []string `arg:"" help:"Templates to evaluate; with none, the whole tree is evaluated" name:"template" optional:""`

	Source      string  `default:"-" help:"Configuration file providing the namespace ('-' reads a literal tree from stdin)." short:"f"`
	Raise       bool    `            help:"Stop at the first substitution error."`
	Forgive     bool    `            help:"Replace failed substitutions with a generic marker."`
	ForgiveWith *string `            help:"Replace failed substitutions by rendering TEMPLATE."                               name:"forgive-with" placeholder:"TEMPLATE"`
	Formula     bool    `            help:"Evaluate templates as formulas ('=' expressions)."`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	tree, _, err := loadTree(ctx, e.Source)
	if err != nil {
		return ErrLoadTree.Wrap(err).
			With(slog.String("source", e.Source))
	}

	ns := subst.FromConfig(tree)

	var opts []subst.Option
	if e.Raise {
		opts = append(opts, subst.WithRaiseErrors())
	}

	switch {
	case e.ForgiveWith != nil:
		opts = append(opts, subst.Forgiving(*e.ForgiveWith))
	case e.Forgive:
		opts = append(opts, subst.ForgivingGeneric())
	}

	return subst.With(ns, func(c *subst.Context) error {
		if len(e.Templates) == 0 {
			return e.tree(c, tree)
		}

		eval := formula.New(ns, formula.WithContext(c))

		for i, t := range e.Templates {
			var (
				out any
				err error
			)

			if e.Formula {
				out, err = eval.Evaluate(t, strconv.Itoa(i))
			} else {
				out, err = c.Evaluate(t, "argv", strconv.Itoa(i))
			}

			if err != nil {
				return ErrEvaluate.Wrap(err).
					With(slog.String("template", t))
			}

			printResult(out)
		}

		return c.Err()
	}, opts...)
}

// tree evaluates every string in the loaded tree and prints the result.
func (e *Eval) tree(c *subst.Context, tree *conf.Mapping) error {
	out, err := c.Evaluate(tree, pkg.Name)
	if err != nil {
		return ErrEvaluate.Wrap(err)
	}

	node, ok := out.(*conf.Mapping)
	if !ok {
		printResult(out)

		return c.Err()
	}

	data, err := conf.Encode(node)
	if err != nil {
		return ErrEncodeTree.Wrap(err)
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return err
	}

	return c.Err()
}

func printResult(value any) {
	switch v := value.(type) {
	case string:
		fmt.Println(v)
	case fmt.Stringer:
		fmt.Println(v.String())
	default:
		fmt.Println(v)
	}
}
