// Package cfgerr defines the typed errors raised during configuration
// resolution. Every failure aborts the resolution that raised it; callers
// distinguish classes with errors.As.
package cfgerr

import "fmt"

// TypeError reports a value whose dynamic type does not match what the
// option contract requires (for example an option bag that is a slice
// instead of a map).
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

// ConfigError reports structural misuse of otherwise well-typed
// configuration: a key that is forbidden for the entry kind, conflicting
// aliases, a malformed [value, options] pair, or a non-boolean isolation
// flag.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// UnknownOptionError reports an option key that is not recognized and is not
// listed in the removed-option table.
type UnknownOptionError struct {
	Key string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option: %q", e.Key)
}

// RemovedOptionError reports an option key that existed in an earlier major
// version and carries the migration guidance for it.
type RemovedOptionError struct {
	Key     string
	Message string
	Version int
}

func (e *RemovedOptionError) Error() string {
	return fmt.Sprintf("option %q was removed in version %d: %s", e.Key, e.Version, e.Message)
}

// PluginShapeError reports a plugin object that exposes a property outside
// the allowed set, or a property of the wrong shape. Alias identifies the
// declaration site for diagnostics.
type PluginShapeError struct {
	Key    string
	Alias  string
	Reason string
}

func (e *PluginShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("plugin %q: invalid property %q: %s", e.Alias, e.Key, e.Reason)
	}
	return fmt.Sprintf("plugin %q: unknown property %q", e.Alias, e.Key)
}

// ResolutionError reports a failure to turn a declared specifier into a
// usable value: a name the resolver does not know, a factory that did not
// return an object, a missing default export, or a value of an unusable
// type.
type ResolutionError struct {
	Msg string
}

func (e *ResolutionError) Error() string { return e.Msg }
