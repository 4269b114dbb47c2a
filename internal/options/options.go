// Package options validates and normalizes the option bag of one
// configuration entry: only whitelisted keys pass, keys that are forbidden
// for the entry's kind or that were removed in an earlier major version
// fail, the legacy source-map alias is canonicalized, and parser/generator
// names are resolved to concrete values.
package options

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/passforge/internal/cfgerr"
	"github.com/vk/passforge/internal/chain"
	"github.com/vk/passforge/internal/descriptor"
)

// known is the closed whitelist of recognized option names.
var known = map[string]struct{}{
	"ast":                         {},
	"auxiliaryCommentAfter":       {},
	"auxiliaryCommentBefore":      {},
	"babelrc":                     {},
	"code":                        {},
	"comments":                    {},
	"compact":                     {},
	"env":                         {},
	"extends":                     {},
	"filename":                    {},
	"filenameRelative":            {},
	"generatorOpts":               {},
	"getModuleId":                 {},
	"highlightCode":               {},
	"ignore":                      {},
	"inputSourceMap":              {},
	"minified":                    {},
	"moduleId":                    {},
	"moduleIds":                   {},
	"moduleRoot":                  {},
	"only":                        {},
	"parserOpts":                  {},
	"passPerPreset":               {},
	"plugins":                     {},
	"presets":                     {},
	"retainLines":                 {},
	"shouldPrintComment":          {},
	"sourceFileName":              {},
	"sourceMapTarget":             {},
	"sourceMaps":                  {},
	"sourceRoot":                  {},
	"sourceType":                  {},
	"suppressDeprecationMessages": {},
	"wrapPluginVisitorMethod":     {},
}

// structural are options the resolver consumes directly; they never appear
// in the merged output.
var structural = map[string]struct{}{
	"plugins":       {},
	"presets":       {},
	"passPerPreset": {},
}

// rootOnly may appear only on the root-arguments entry.
var rootOnly = map[string]struct{}{
	"filename": {},
	"babelrc":  {},
}

// notInPreset may not appear on entries of kind preset.
var notInPreset = map[string]struct{}{
	"only":    {},
	"ignore":  {},
	"extends": {},
	"env":     {},
}

// Validator checks one entry's option bag. Parsers and Generators resolve
// by-name parser/generator sub-options; Removed is the removed-option table.
type Validator struct {
	Parsers    descriptor.Lookup
	Generators descriptor.Lookup
	Removed    map[string]Removed
}

// Validate returns a normalized copy of the entry's option bag containing
// only recognized, merge-relevant keys. The input is never mutated.
func (v *Validator) Validate(_ context.Context, e *chain.Entry) (map[string]any, error) {
	if e.Options == nil {
		return map[string]any{}, nil
	}
	bag, ok := e.Options.(map[string]any)
	if !ok {
		return nil, &cfgerr.TypeError{Msg: fmt.Sprintf("%s: options must be an object, got %T", e.Location, e.Options)}
	}

	if _, hasLegacy := bag["sourceMap"]; hasLegacy {
		if _, hasCanonical := bag["sourceMaps"]; hasCanonical {
			return nil, &cfgerr.ConfigError{Msg: fmt.Sprintf("%s: .sourceMap is an alias for .sourceMaps, only one may be set", e.Location)}
		}
	}

	keys := make([]string, 0, len(bag))
	for key := range bag {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(bag))
	for _, key := range keys {
		canonical := key
		if key == "sourceMap" {
			canonical = "sourceMaps"
		}

		if _, ok := known[canonical]; !ok {
			if removed, ok := v.removedTable()[key]; ok {
				return nil, &cfgerr.RemovedOptionError{Key: key, Message: removed.Message, Version: removed.Version}
			}
			return nil, &cfgerr.UnknownOptionError{Key: key}
		}

		if e.Kind != chain.RootArguments {
			if _, ok := rootOnly[canonical]; ok {
				return nil, &cfgerr.ConfigError{Msg: fmt.Sprintf("%s: .%s is only allowed as a root argument", e.Location, key)}
			}
		}
		if e.Kind == chain.Preset {
			if _, ok := notInPreset[canonical]; ok {
				return nil, &cfgerr.ConfigError{Msg: fmt.Sprintf("%s: .%s is not supported in a preset", e.Location, key)}
			}
		}

		if _, ok := structural[canonical]; ok {
			continue
		}
		out[canonical] = bag[key]
	}

	if err := v.resolveNamed(out, "parserOpts", "parser", v.Parsers, e.Dir); err != nil {
		return nil, err
	}
	if err := v.resolveNamed(out, "generatorOpts", "generator", v.Generators, e.Dir); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveNamed replaces a string-valued parser/generator sub-option with the
// value the name resolves to, on a copy of the sub-map.
func (v *Validator) resolveNamed(out map[string]any, optKey, subKey string, lookup descriptor.Lookup, dir string) error {
	sub, ok := out[optKey].(map[string]any)
	if !ok {
		return nil
	}
	name, ok := sub[subKey].(string)
	if !ok {
		return nil
	}
	if lookup == nil {
		return &cfgerr.ResolutionError{Msg: fmt.Sprintf("no %s resolver configured for %q", subKey, name)}
	}
	res, err := lookup.Resolve(name, dir)
	if err != nil {
		return err
	}
	cloned := make(map[string]any, len(sub))
	for k, val := range sub {
		cloned[k] = val
	}
	cloned[subKey] = res.Value
	out[optKey] = cloned
	return nil
}

func (v *Validator) removedTable() map[string]Removed {
	if v.Removed != nil {
		return v.Removed
	}
	return DefaultRemoved
}
