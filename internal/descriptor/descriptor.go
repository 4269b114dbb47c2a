// Package descriptor normalizes raw plugin and preset declarations into
// canonical descriptors: a resolved value plus its use-site options and
// diagnostic metadata. A descriptor is created fresh per declaration site
// and is not yet instantiated; instantiation is the plugin package's job.
package descriptor

import (
	"fmt"
	"reflect"

	"github.com/vk/passforge/internal/cfgerr"
)

// Resolved is what a name resolver returns for a specifier: the value the
// name maps to and the path that identifies where it came from, used as the
// descriptor's diagnostic location.
type Resolved struct {
	Path  string
	Value any
}

// Lookup resolves a string specifier, relative to a base directory, to a
// concrete value. Implementations fail with a not-found error for names they
// do not know.
type Lookup interface {
	Resolve(name, dir string) (Resolved, error)
}

// Descriptor is a normalized reference to a not-yet-instantiated plugin or
// preset.
type Descriptor struct {
	// Path is the resolver-reported location for named declarations, empty
	// for inline values.
	Path string
	// Value is the resolved declaration: a factory function, an inline spec
	// map, or an already-instantiated plugin.
	Value any
	// Options is the per-use option bag, nil when the declaration carried
	// none.
	Options map[string]any
	// Dir is the base directory the declaration was made relative to.
	Dir string
	// Alias labels the declaration site in diagnostics.
	Alias string
	// Location labels the config source the declaration appeared in.
	Location string
	// SkipOptions makes instantiation invoke the factory without the
	// per-use options.
	SkipOptions bool
}

// Parse normalizes one raw declaration into a Descriptor. A declaration is
// either a bare value (name, factory, inline spec, plugin instance) or a
// [value, options] pair. index is the declaration's position in its list,
// used to label inline values.
func Parse(raw any, lookup Lookup, dir string, index int) (*Descriptor, error) {
	value := raw
	var options map[string]any

	if pair, ok := raw.([]any); ok {
		if len(pair) == 0 {
			return nil, &cfgerr.ConfigError{Msg: fmt.Sprintf("declaration at index %d is an empty pair", index)}
		}
		if len(pair) > 2 {
			return nil, &cfgerr.ConfigError{Msg: fmt.Sprintf("declaration at index %d has unexpected extra options", index)}
		}
		value = pair[0]
		if len(pair) == 2 && pair[1] != nil {
			opts, ok := pair[1].(map[string]any)
			if !ok {
				return nil, &cfgerr.ConfigError{Msg: fmt.Sprintf("declaration at index %d: options must be an object, got %T", index, pair[1])}
			}
			options = opts
		}
	}

	d := &Descriptor{
		Options: options,
		Dir:     dir,
		Alias:   fmt.Sprintf("inline#%d", index),
	}

	if name, ok := value.(string); ok {
		if lookup == nil {
			return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("no resolver configured for %q", name)}
		}
		res, err := lookup.Resolve(name, dir)
		if err != nil {
			return nil, err
		}
		value = res.Value
		d.Path = res.Path
		d.Alias = name
		d.Location = res.Path
	}

	value, err := unwrapModule(value, d.Alias)
	if err != nil {
		return nil, err
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Func, reflect.Map, reflect.Pointer:
	default:
		return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s must be an object or a function, got %T", d.Alias, value)}
	}

	d.Value = value
	return d, nil
}

// unwrapModule replaces an interop-wrapped ES module value with its default
// member. A falsy value, before or after unwrapping, fails resolution.
func unwrapModule(value any, alias string) (any, error) {
	if value == nil {
		return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s resolved to an empty value", alias)}
	}
	m, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	if es, ok := m["__esModule"].(bool); !ok || !es {
		return value, nil
	}
	def, ok := m["default"]
	if !ok {
		return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s is a module wrapper with no default export", alias)}
	}
	if def == nil {
		return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s resolved to an empty value", alias)}
	}
	return def, nil
}
