package resolver

import (
	"context"
	"path/filepath"

	"github.com/vk/passforge/internal/ctxlog"
)

// moduleFileExt is the extension that forces module source type when the
// caller did not set one explicitly.
const moduleFileExt = ".mjs"

// defaultOptions seeds the merged options before any entry is applied, so
// every entry can override them.
func defaultOptions() map[string]any {
	return map[string]any{
		"ast":           true,
		"babelrc":       true,
		"code":          true,
		"comments":      true,
		"compact":       "auto",
		"highlightCode": true,
		"sourceMaps":    false,
	}
}

// finalize runs the post-merge derivations and flattens the pass table into
// wire shape: the main pass becomes the plugin list on the merged options,
// and every non-empty extra pass becomes one wrapped preset entry. Feeding
// that output back through a resolution reproduces the same plugins by
// identity.
func (ru *run) finalize(ctx context.Context) *Result {
	opts := ru.merged

	opts["plugins"] = wireItems(ru.passes[0].items)
	var presets []any
	for _, p := range ru.passes[1:] {
		if len(p.items) == 0 {
			continue
		}
		presets = append(presets, map[string]any{"plugins": wireItems(p.items)})
	}
	if presets != nil {
		opts["presets"] = presets
	}

	// Implied flags.
	if v, ok := opts["inputSourceMap"]; ok && v != nil {
		opts["sourceMaps"] = true
	}
	if v, ok := opts["moduleId"]; ok && v != nil && v != "" {
		opts["moduleIds"] = true
	}

	// Defaulting chain; each step applies only while the target is unset.
	if unset(opts, "moduleRoot") && !unset(opts, "sourceRoot") {
		opts["moduleRoot"] = opts["sourceRoot"]
	}
	if unset(opts, "sourceRoot") && !unset(opts, "moduleRoot") {
		opts["sourceRoot"] = opts["moduleRoot"]
	}
	if unset(opts, "filenameRelative") {
		if name, ok := opts["filename"].(string); ok {
			opts["filenameRelative"] = name
		}
	}
	if rel, ok := opts["filenameRelative"].(string); ok && rel != "" {
		if unset(opts, "sourceType") && filepath.Ext(rel) == moduleFileExt {
			opts["sourceType"] = "module"
		}
		base := filepath.Base(rel)
		if unset(opts, "sourceFileName") {
			opts["sourceFileName"] = base
		}
		if unset(opts, "sourceMapTarget") {
			opts["sourceMapTarget"] = base
		}
	}

	passes := make([][]Item, len(ru.passes))
	for i, p := range ru.passes {
		passes[i] = append([]Item(nil), p.items...)
	}
	ctxlog.FromContext(ctx).Debug("Resolution finalized.", "passes", len(passes), "main_plugins", len(passes[0]))
	return &Result{Options: opts, Passes: passes}
}

func unset(opts map[string]any, key string) bool {
	v, ok := opts[key]
	return !ok || v == nil
}

// wireItems renders a pass's items as [plugin, options] declaration pairs,
// the shape a fresh resolution accepts back.
func wireItems(items []Item) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = []any{item.Plugin, item.Options}
	}
	return out
}
