// Package passforge resolves layered compiler configuration into an
// executable plan. Callers register plugins, presets, parsers and
// generators by name, then hand the resolver a root option bag; the
// resolver validates every option, expands presets depth-first,
// instantiates plugin declarations exactly once per underlying value, and
// returns the merged options together with the ordered pass table.
//
// The package re-exports the model types the internal packages define, so
// callers never import internal paths.
package passforge
