package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/strata/cli/cmd"
	"github.com/ardnew/strata/conf"
	"github.com/ardnew/strata/pkg"
)

// CLI is the top-level command-line interface for strata.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Path   []string          `help:"Additional search root(s) for _include resolution" name:"path"   type:"existingdir"`
	Module map[string]string `help:"Register a named include module as name=dir"       name:"module"`

	Resolve cmd.Resolve `cmd:"" help:"Load a configuration tree and resolve its directives"`
	Repl    cmd.Repl    `cmd:"" help:"Evaluate templates interactively"`

	Eval cmd.Eval `cmd:"" default:"withargs" help:"Evaluate substitution templates"`
}

// Run executes the strata CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  cacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	// Parse command line
	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolve, configFilePath+".yaml"),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Named modules and search roots feed every command that loads a tree.
	for name, dir := range cli.Module {
		conf.RegisterModule(name, dir)
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSearchRoots(ctx, cli.Path)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	defer cli.Log.start(ctx)()

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	// Execute the selected command
	return ktx.Run(ctx, &cli)
}
