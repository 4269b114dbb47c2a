// Package chain defines the format-agnostic model of a configuration chain:
// the ordered sequence of configuration entries (root arguments, config-file
// contents, expanded presets) that the resolver merges into a final set of
// options and passes.
//
// Discovery and ordering of entries is owned by a Builder implementation;
// this package only defines the contract and a trivial builder for callers
// that supply all options programmatically.
package chain
