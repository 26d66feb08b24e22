// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// The package offers configurable time formatting, caller information,
// and output formats that are applied using functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText))
//	logger.Info("resolved", slog.String("file", path))
//
// A package-level default logger is provided for commands and adapters
// that do not thread an explicit logger. It is reconfigured in place with
// [Config]:
//
//	log.Config(log.WithLevel(log.LevelDebug))
//	log.Debug("directive resolved", slog.String("location", loc))
//
// Two output formats are supported, [FormatJSON] (default) and
// [FormatText], each with an optional colorized pretty variant.
package log
