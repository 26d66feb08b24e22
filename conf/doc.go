// Package conf loads layered YAML configuration trees.
//
// Files are decoded into insertion-ordered [Mapping] nodes and then
// resolved: any mapping may carry directives that pull in content from
// other files or other parts of the tree before its own keys apply.
//
//   - "_include" names one or more files to load and layer beneath the
//     node. Specifiers resolve against the including file's directory,
//     the search path (see [DefaultSearchPath]), or a registered module
//     directory when written as "(module)rel/path".
//   - "_use" names one or more sections, looked up by dotted path in
//     the source trees supplied with [WithSources] (and, for nested
//     nodes, the enclosing tree itself), to layer beneath the node.
//   - "_flatten" and "_flatten_sep" hoist nested keys of the content
//     merged in by the other two directives.
//
// Directives are re-examined until none remain, so included files may
// themselves include or use further content. A fixed iteration cap
// turns mutual inclusion into an error instead of a hang.
//
// In every merge the node carrying the directive wins over the content
// it pulls in, and later entries in a directive list win over earlier
// ones. Source trees passed by the caller are never mutated.
package conf
