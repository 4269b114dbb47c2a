package resolver

import (
	"context"
	"fmt"
	"strings"

	"dario.cat/mergo"

	"github.com/vk/passforge/internal/cfgerr"
	"github.com/vk/passforge/internal/chain"
	"github.com/vk/passforge/internal/ctxlog"
	"github.com/vk/passforge/internal/descriptor"
	"github.com/vk/passforge/internal/options"
	"github.com/vk/passforge/internal/plugin"
	"github.com/vk/passforge/internal/visitor"
)

// annotationMarker prefixes the one top-level error annotation. Its presence
// in a message suppresses re-annotation when errors bubble through nested
// preset recursion.
const annotationMarker = "[passforge]"

// processingMarker is the suffix the instantiation layer appends once per
// failing descriptor.
const processingMarker = "(while processing:"

// Config wires a Resolver's collaborators. Nil fields select defaults where
// one exists: a root-only chain, the default visitor normalizer, an empty
// factory context, and the standard removed-option table.
type Config struct {
	Chain      chain.Builder
	Plugins    descriptor.Lookup
	Presets    descriptor.Lookup
	Parsers    descriptor.Lookup
	Generators descriptor.Lookup
	Visitors   visitor.Normalizer
	Removed    map[string]options.Removed
	API        *plugin.Context
}

// Resolver holds the state shared across resolutions: the collaborators and
// the instantiation caches. A Resolver is intended to be created once and
// reused; each Run owns its own merged options and pass table.
type Resolver struct {
	chain       chain.Builder
	plugins     descriptor.Lookup
	presets     descriptor.Lookup
	validator   *options.Validator
	inst        *plugin.Instantiator
	api         *plugin.Context
	presetCache *plugin.Cache
}

// New creates a Resolver from the given configuration.
func New(cfg Config) *Resolver {
	if cfg.Chain == nil {
		cfg.Chain = chain.RootOnly{}
	}
	if cfg.Visitors == nil {
		cfg.Visitors = visitor.Default{}
	}
	if cfg.API == nil {
		cfg.API = &plugin.Context{}
	}
	return &Resolver{
		chain:   cfg.Chain,
		plugins: cfg.Plugins,
		presets: cfg.Presets,
		validator: &options.Validator{
			Parsers:    cfg.Parsers,
			Generators: cfg.Generators,
			Removed:    cfg.Removed,
		},
		inst:        plugin.NewInstantiator(cfg.API, cfg.Visitors, plugin.NewCache()),
		api:         cfg.API,
		presetCache: plugin.NewCache(),
	}
}

// Item is one (plugin, options) pair within a pass.
type Item struct {
	Plugin  *plugin.Plugin
	Options map[string]any
}

// Result is what a successful resolution produces: the merged options and
// the full pass table. Passes[0] is the main pass; it always exists.
type Result struct {
	Options map[string]any
	Passes  [][]Item
}

// pass is one independent application of the pipeline being assembled.
type pass struct {
	items []Item
}

// run is the state owned by a single top-level resolution.
type run struct {
	res    *Resolver
	merged map[string]any
	passes []*pass
}

// Run resolves the configuration reachable from the given root arguments.
// It returns nil, nil when the chain builder reports no applicable
// configuration. Any failure aborts the whole resolution and is annotated
// once with the root filename.
func (r *Resolver) Run(ctx context.Context, rootArgs map[string]any) (*Result, error) {
	filename := "unknown"
	if name, ok := rootArgs["filename"].(string); ok && name != "" {
		filename = name
	}

	root := &chain.Entry{Kind: chain.RootArguments, Options: rootArgs, Location: "arguments"}
	entries, err := r.chain.Build(ctx, root)
	if err != nil {
		return nil, annotate(err, filename)
	}
	if entries == nil {
		ctxlog.FromContext(ctx).Debug("No applicable configuration.", "filename", filename)
		return nil, nil
	}

	ru := &run{res: r, merged: defaultOptions(), passes: []*pass{{}}}
	for _, e := range entries {
		if err := ru.resolveEntry(ctx, e, ru.passes[0]); err != nil {
			return nil, annotate(err, filename)
		}
	}
	return ru.finalize(ctx), nil
}

// annotate prefixes err with the annotation marker and the originating
// filename, exactly once.
func annotate(err error, filename string) error {
	if strings.Contains(err.Error(), annotationMarker) {
		return err
	}
	return fmt.Errorf("%s %s: %w", annotationMarker, filename, err)
}

// resolveEntry merges one configuration entry: validate its options, expand
// its presets depth-first, instantiate its plugins into the target pass, and
// fold its option bag into the merged result.
func (ru *run) resolveEntry(ctx context.Context, e *chain.Entry, target *pass) error {
	ctx = ctxlog.WithAttrs(ctx, "location", e.Location, "kind", e.Kind.String())
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving config entry.")

	normalized, err := ru.res.validator.Validate(ctx, e)
	if err != nil {
		return err
	}
	// Validate has established the bag's shape; nil means an empty entry.
	bag, _ := e.Options.(map[string]any)

	perPreset := false
	if v, ok := bag["passPerPreset"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return &cfgerr.ConfigError{Msg: fmt.Sprintf("%s: .passPerPreset must be a boolean, got %T", e.Location, v)}
		}
		perPreset = b
	}

	presetDecls, err := declList(bag, "presets", e.Location)
	if err != nil {
		return err
	}
	if len(presetDecls) > 0 {
		descs := make([]*descriptor.Descriptor, len(presetDecls))
		for i, decl := range presetDecls {
			d, err := descriptor.Parse(decl, ru.res.presets, e.Dir, i)
			if err != nil {
				return err
			}
			descs[i] = d
		}

		targets := make([]*pass, len(descs))
		if perPreset {
			// One fresh pass per preset, spliced in as a group right after
			// the main pass, ahead of passes added by earlier siblings.
			fresh := make([]*pass, len(descs))
			for i := range fresh {
				fresh[i] = &pass{}
			}
			spliced := make([]*pass, 0, len(ru.passes)+len(fresh))
			spliced = append(spliced, ru.passes[0])
			spliced = append(spliced, fresh...)
			spliced = append(spliced, ru.passes[1:]...)
			ru.passes = spliced
			copy(targets, fresh)
		} else {
			for i := range targets {
				targets[i] = target
			}
		}

		// Each preset resolves completely, nested presets and plugins
		// included, before this entry's own plugins are placed.
		for i, d := range descs {
			sub, err := ru.expandPreset(ctx, d)
			if err != nil {
				return err
			}
			if err := ru.resolveEntry(ctx, sub, targets[i]); err != nil {
				return err
			}
		}
	}

	pluginDecls, err := declList(bag, "plugins", e.Location)
	if err != nil {
		return err
	}
	if len(pluginDecls) > 0 {
		items := make([]Item, len(pluginDecls))
		for i, decl := range pluginDecls {
			d, err := descriptor.Parse(decl, ru.res.plugins, e.Dir, i)
			if err != nil {
				return err
			}
			p, opts, err := ru.res.inst.Plugin(ctx, d)
			if err != nil {
				return err
			}
			items[i] = Item{Plugin: p, Options: opts}
		}
		// Later-merged entries go in front: execution order across the
		// resolution is the reverse of merge order.
		target.items = append(items, target.items...)
		logger.Debug("Placed plugins into pass.", "count", len(items))
	}

	if err := mergo.Merge(&ru.merged, normalized, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return fmt.Errorf("merging options from %s: %w", e.Location, err)
	}
	return nil
}

// expandPreset turns a preset descriptor into the nested config entry its
// value stands for. The invocation path and cache behavior match plugin
// instantiation; the returned object is an option bag, so no plugin-shape
// validation happens here.
func (ru *run) expandPreset(ctx context.Context, d *descriptor.Descriptor) (*chain.Entry, error) {
	built, err := ru.res.presetCache.Memoize(d.Value, func() (any, error) {
		return plugin.Materialize(ru.res.api, d)
	})
	if err != nil {
		if !strings.Contains(err.Error(), processingMarker) {
			err = fmt.Errorf("%w %s %s)", err, processingMarker, d.Alias)
		}
		return nil, err
	}

	location := d.Path
	if location == "" {
		location = d.Alias
	}
	return &chain.Entry{
		Kind:     chain.Preset,
		Options:  built.(map[string]any),
		Location: location,
		Dir:      d.Dir,
	}, nil
}

// declList reads a structural declaration list off a raw bag.
func declList(bag map[string]any, key, location string) ([]any, error) {
	v, ok := bag[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &cfgerr.TypeError{Msg: fmt.Sprintf("%s: .%s must be an array, got %T", location, key, v)}
	}
	return list, nil
}
