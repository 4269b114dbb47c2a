package passforge

import (
	"context"

	"github.com/vk/passforge/internal/chain"
	"github.com/vk/passforge/internal/descriptor"
	"github.com/vk/passforge/internal/options"
	"github.com/vk/passforge/internal/plugin"
	"github.com/vk/passforge/internal/registry"
	"github.com/vk/passforge/internal/resolver"
	"github.com/vk/passforge/internal/visitor"
)

// Version is reported to plugin and preset factories through the Context
// they receive.
const Version = "6.0.0"

// Re-exported model types. The internal packages own the behavior; these
// aliases are the public surface.
type (
	// Plugin is an instantiated, validated transform.
	Plugin = plugin.Plugin
	// Factory builds a raw plugin or preset object on first use.
	Factory = plugin.Factory
	// Context is handed to every factory invocation.
	Context = plugin.Context
	// Hook is a pre or post lifecycle callback.
	Hook = plugin.Hook
	// ManipulateOptionsFunc lets a plugin adjust options before a run.
	ManipulateOptionsFunc = plugin.ManipulateOptionsFunc

	// HandlerFunc is a single visitor callback.
	HandlerFunc = visitor.HandlerFunc
	// NodeHandlers groups the enter and exit callbacks for one node kind.
	NodeHandlers = visitor.NodeHandlers
	// VisitorMap maps node kinds to their handlers.
	VisitorMap = visitor.Map
	// Normalizer expands visitor shorthand and merges visitor maps.
	Normalizer = visitor.Normalizer

	// Entry is one configuration source to merge.
	Entry = chain.Entry
	// Kind identifies where an entry came from.
	Kind = chain.Kind
	// ChainBuilder produces the ordered entry list for a resolution.
	ChainBuilder = chain.Builder

	// Lookup resolves specifier names to values.
	Lookup = descriptor.Lookup
	// Removed describes an option retired from the accepted set.
	Removed = options.Removed

	// Result is a successful resolution's output.
	Result = resolver.Result
	// Item is one (plugin, options) pair within a pass.
	Item = resolver.Item
)

// Entry kinds.
const (
	RootArguments = chain.RootArguments
	OptionsBag    = chain.OptionsBag
	Preset        = chain.Preset
)

// DefaultRemoved is the standard removed-option table.
var DefaultRemoved = options.DefaultRemoved

// Resolver is the composition root: four name registries plus the
// resolution engine sharing one instantiation cache. Create it once and
// reuse it; registration and resolution are safe to interleave.
type Resolver struct {
	plugins    *registry.Registry
	presets    *registry.Registry
	parsers    *registry.Registry
	generators *registry.Registry
	core       *resolver.Resolver
}

type settings struct {
	chain    chain.Builder
	visitors visitor.Normalizer
	removed  map[string]options.Removed
	api      *plugin.Context
}

// Option customizes a Resolver at construction time.
type Option func(*settings)

// WithChainBuilder replaces the default root-only chain builder, letting
// callers splice in discovered configuration sources.
func WithChainBuilder(b ChainBuilder) Option {
	return func(s *settings) { s.chain = b }
}

// WithVisitorNormalizer replaces the default visitor shorthand expansion.
func WithVisitorNormalizer(n Normalizer) Option {
	return func(s *settings) { s.visitors = n }
}

// WithRemovedOptions replaces the standard removed-option table.
func WithRemovedOptions(table map[string]Removed) Option {
	return func(s *settings) { s.removed = table }
}

// WithAPI replaces the context value passed to factories.
func WithAPI(api *Context) Option {
	return func(s *settings) { s.api = api }
}

// New creates a Resolver with empty registries.
func New(opts ...Option) *Resolver {
	s := settings{api: &plugin.Context{Version: Version}}
	for _, opt := range opts {
		opt(&s)
	}

	r := &Resolver{
		plugins:    registry.New("plugin"),
		presets:    registry.New("preset"),
		parsers:    registry.New("parser"),
		generators: registry.New("generator"),
	}
	r.core = resolver.New(resolver.Config{
		Chain:      s.chain,
		Plugins:    r.plugins,
		Presets:    r.presets,
		Parsers:    r.parsers,
		Generators: r.generators,
		Visitors:   s.visitors,
		Removed:    s.removed,
		API:        s.api,
	})
	return r
}

// RegisterPlugin binds a plugin name to a factory, spec map or Plugin.
// Registering a name twice panics.
func (r *Resolver) RegisterPlugin(name string, value any) { r.plugins.Register(name, value) }

// RegisterPreset binds a preset name to a factory or option bag.
func (r *Resolver) RegisterPreset(name string, value any) { r.presets.Register(name, value) }

// RegisterParser binds a parser name for parserOpts.parser references.
func (r *Resolver) RegisterParser(name string, value any) { r.parsers.Register(name, value) }

// RegisterGenerator binds a generator name for generatorOpts.generator
// references.
func (r *Resolver) RegisterGenerator(name string, value any) { r.generators.Register(name, value) }

// PluginNames lists the registered plugin names in sorted order.
func (r *Resolver) PluginNames() []string { return r.plugins.Names() }

// PresetNames lists the registered preset names in sorted order.
func (r *Resolver) PresetNames() []string { return r.presets.Names() }

// Resolve runs a full resolution for the given root arguments. It returns
// nil, nil when the chain builder reports no applicable configuration.
func (r *Resolver) Resolve(ctx context.Context, rootArgs map[string]any) (*Result, error) {
	return r.core.Run(ctx, rootArgs)
}
