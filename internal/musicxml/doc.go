// Package musicxml parses pitch-per-note score documents into a generic
// ordered element tree, extracts score summaries, and rewrites documents
// into a target key.
//
// The tree deliberately exposes only a small capability set (enumerate
// children, read/write a named child's value, insert/remove a child at a
// position) so the rewriter does not depend on any particular document
// representation. Namespace prefixes are matched by local name and dropped
// on output; Audiveris exports carry a DOCTYPE rather than a namespace.
package musicxml
