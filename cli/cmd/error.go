package cmd

import (
	"github.com/ardnew/strata/conf"
)

var (
	ErrLoadTree   = conf.NewError("load configuration tree")
	ErrEncodeTree = conf.NewError("encode configuration tree")
	ErrEvaluate   = conf.NewError("evaluate template")
)
