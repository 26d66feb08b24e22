package params

import (
	"github.com/ardnew/strata/conf"
)

var (
	ErrUnknownParameter = conf.NewError("unknown parameter")
	ErrMissingRequired  = conf.NewError("missing required parameters")
	ErrUnknownDtype     = conf.NewError("unknown dtype")
	ErrBadValue         = conf.NewError("invalid parameter value")
	ErrBadChoice        = conf.NewError("value not among allowed choices")
	ErrMissingFile      = conf.NewError("file does not exist")
	ErrNotFile          = conf.NewError("path is not a regular file")
	ErrNotDirectory     = conf.NewError("path is not a directory")
	ErrMultipleFiles    = conf.NewError("multiple files given for single-file parameter")
	ErrNoFiles          = conf.NewError("value does not specify any files")
)
