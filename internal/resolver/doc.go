// Package resolver drives configuration resolution: it walks the ordered
// chain of configuration entries, validates each entry's options, expands
// preset declarations into nested entries, instantiates plugin declarations,
// and assembles the ordered pass table and merged options the compilation
// engine consumes.
//
// Resolution is synchronous and depth-first. One Run owns its merged
// options and pass table exclusively; only the plugin instantiation caches
// are shared across runs.
package resolver
