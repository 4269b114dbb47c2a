// Package plugin turns descriptors into instantiated, validated transform
// plugins. Instantiation invokes factories with an explicit context value,
// validates the returned shape against the closed plugin property set,
// composes inheritance chains, and caches results by the identity of the
// underlying factory so a given factory is never invoked twice.
package plugin
