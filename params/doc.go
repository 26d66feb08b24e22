// Package params validates named parameter sets against schemas.
//
// Each [Schema] names a dtype from a closed registry (see [Dtypes]),
// and [Validate] runs the full pipeline over a parameter map: unknown
// and required checks, default filling, an optional substitution pass
// over a [subst.Namespace], dtype conversion, choice checking, and
// glob expansion with existence checks for File and Directory values.
package params
