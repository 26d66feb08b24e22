// Package formula evaluates "="-prefixed expression strings found in
// config values.
//
// A value like "=previous.size * 2" is parsed as an expression over
// the substitution namespace, with dotted access to its entries. The
// prefix "==" escapes formula parsing, yielding a literal string that
// starts with "=". Formulas may call:
//
//   - IF(cond, then, else[, ifunset])
//   - IFSET("path"[, ifset[, ifunset]])
//   - GLOB(pattern): sorted filesystem matches
//   - EXISTS(pattern): whether the pattern matches anything
//   - LIST(args...)
//
// and may yield the UNSET keyword, which [Evaluator.EvaluateMap]
// treats as "delete this entry, or revert it to its default".
package formula
