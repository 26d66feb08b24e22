// Package subst performs template substitution over config values.
//
// A template string embeds replacement fields of the form
// "{path.to.key:spec}". The path resolves against a [Namespace] built
// from config trees (see [FromConfig]); the optional spec controls
// number formatting, padding and alignment. Doubled braces "{{" and
// "}}" escape to literal braces.
//
// Evaluation is lazy: a value fetched during a lookup is itself
// evaluated at that moment, so definitions may reference each other in
// any order. A per-session location stack tracks which paths are being
// resolved, turning direct and mutual reference cycles into
// [KindCyclic] errors instead of unbounded recursion. An eager
// pre-resolution pass was considered and rejected: it cannot know
// which values will be fetched, evaluates opaque subtrees it should
// not, and reports cycles for definitions never actually used.
//
// Sessions are explicit handles obtained from [Enter] (or scoped with
// [With]). By default errors accumulate on the session and each failed
// substitution yields the empty string; [WithRaiseErrors] aborts on
// the first failure instead, and a [Policy] can forgive selected
// failure kinds by substituting placeholders.
package subst
