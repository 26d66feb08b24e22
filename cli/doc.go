// Package cli implements the strata command-line interface.
//
// The CLI exposes three subcommands over the configuration engine:
//
//   - resolve: load a YAML tree, process its _include/_use/_flatten
//     directives, and print the assembled result
//   - eval: substitute {}-templates (or evaluate =formulas) against a
//     namespace built from a resolved tree
//   - repl: evaluate templates interactively with history and fuzzy
//     completion
//
// Global flags register include modules (--module name=dir), extend the
// include search path (--path), configure logging (--log-*), and enable
// profiling when built with the pprof tag (--pprof-*).
//
// Flag defaults may also come from the user configuration file, which
// is itself a strata tree read by the resolver in this package.
package cli
