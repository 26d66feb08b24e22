package repl

import "errors"

// ErrNoNamespace is returned when the REPL is started without a
// namespace to evaluate against.
var ErrNoNamespace = errors.New("no namespace to evaluate against")
