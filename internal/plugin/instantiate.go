package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/passforge/internal/cfgerr"
	"github.com/vk/passforge/internal/ctxlog"
	"github.com/vk/passforge/internal/descriptor"
	"github.com/vk/passforge/internal/visitor"
)

// allowedKeys is the closed set of properties a raw plugin object may carry.
var allowedKeys = map[string]struct{}{
	"name":              {},
	"manipulateOptions": {},
	"pre":               {},
	"post":              {},
	"visitor":           {},
	"inherits":          {},
}

const processingMarker = "(while processing:"

// Instantiator turns descriptors into Plugins. It holds the shared
// instantiation cache, the visitor normalizer, and the context value passed
// to factories.
type Instantiator struct {
	api      *Context
	visitors visitor.Normalizer
	cache    *Cache
}

// NewInstantiator wires an instantiator. Nil arguments select defaults: an
// empty Context, the default visitor normalizer, and a fresh cache.
func NewInstantiator(api *Context, visitors visitor.Normalizer, cache *Cache) *Instantiator {
	if api == nil {
		api = &Context{}
	}
	if visitors == nil {
		visitors = visitor.Default{}
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Instantiator{api: api, visitors: visitors, cache: cache}
}

// Plugin resolves a descriptor to its instantiated Plugin and the
// descriptor's own options. A descriptor whose value already is a Plugin is
// returned unchanged without re-validation, which makes resolution
// idempotent when fed its own previous output.
//
// Errors raised while instantiating are annotated once with the
// descriptor's alias.
func (i *Instantiator) Plugin(ctx context.Context, d *descriptor.Descriptor) (*Plugin, map[string]any, error) {
	p, err := i.resolve(ctx, d)
	if err != nil {
		if !strings.Contains(err.Error(), processingMarker) {
			err = fmt.Errorf("%w %s %s)", err, processingMarker, d.Alias)
		}
		return nil, nil, err
	}
	return p, d.Options, nil
}

// resolve is the unannotated instantiation path, shared with inheritance
// recursion.
func (i *Instantiator) resolve(ctx context.Context, d *descriptor.Descriptor) (*Plugin, error) {
	if p, ok := d.Value.(*Plugin); ok {
		return p, nil
	}
	built, err := i.cache.Memoize(d.Value, func() (any, error) {
		return i.build(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return built.(*Plugin), nil
}

// build instantiates and validates one descriptor. Only reached on cache
// misses.
func (i *Instantiator) build(ctx context.Context, d *descriptor.Descriptor) (*Plugin, error) {
	raw, err := Materialize(i.api, d)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := allowedKeys[key]; !ok {
			return nil, &cfgerr.PluginShapeError{Key: key, Alias: d.Alias}
		}
	}

	p := &Plugin{Alias: d.Alias, Visitor: visitor.Map{}}

	if v, ok := raw["name"]; ok {
		name, ok := v.(string)
		if !ok {
			return nil, &cfgerr.PluginShapeError{Key: "name", Alias: d.Alias, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}
		p.Name = name
	}

	pre, err := hookField(raw, "pre", d.Alias)
	if err != nil {
		return nil, err
	}
	post, err := hookField(raw, "post", d.Alias)
	if err != nil {
		return nil, err
	}
	manipulate, err := manipulateField(raw, d.Alias)
	if err != nil {
		return nil, err
	}

	ownVisitor := visitor.Map{}
	if v, ok := raw["visitor"]; ok && v != nil {
		vmap, ok := v.(map[string]any)
		if !ok {
			return nil, &cfgerr.PluginShapeError{Key: "visitor", Alias: d.Alias, Reason: fmt.Sprintf("must be an object, got %T", v)}
		}
		for _, phase := range []string{"enter", "exit"} {
			if _, ok := vmap[phase]; ok {
				return nil, &cfgerr.PluginShapeError{Key: phase, Alias: d.Alias, Reason: "catch-all visitors are not supported, scope handlers to a node kind"}
			}
		}
		cloned := make(map[string]any, len(vmap))
		for kind, handlers := range vmap {
			cloned[kind] = handlers
		}
		ownVisitor, err = i.visitors.Normalize(cloned)
		if err != nil {
			return nil, err
		}
	}

	if inherits, ok := raw["inherits"]; ok && inherits != nil {
		base, err := i.resolveInherited(ctx, d, inherits)
		if err != nil {
			return nil, err
		}
		p.Pre = append(p.Pre, base.Pre...)
		p.Post = append(p.Post, base.Post...)
		p.ManipulateOptions = append(p.ManipulateOptions, base.ManipulateOptions...)
		ownVisitor = i.visitors.Merge(base.Visitor, ownVisitor)
	}

	if pre != nil {
		p.Pre = append(p.Pre, pre)
	}
	if post != nil {
		p.Post = append(p.Post, post)
	}
	if manipulate != nil {
		p.ManipulateOptions = append(p.ManipulateOptions, manipulate)
	}
	p.Visitor = ownVisitor

	ctxlog.FromContext(ctx).Debug("Instantiated plugin.", "alias", d.Alias, "name", p.Name)
	return p, nil
}

// resolveInherited instantiates the plugin named by an inherits property
// through the same cached procedure, sharing the descriptor's options and
// directory.
func (i *Instantiator) resolveInherited(ctx context.Context, d *descriptor.Descriptor, inherits any) (*Plugin, error) {
	nested := &descriptor.Descriptor{
		Value:       inherits,
		Options:     d.Options,
		Dir:         d.Dir,
		Alias:       d.Alias + "/inherits",
		Location:    d.Location,
		SkipOptions: d.SkipOptions,
	}
	return i.resolve(ctx, nested)
}

func hookField(raw map[string]any, key, alias string) (Hook, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch h := v.(type) {
	case Hook:
		return h, nil
	case func(any) error:
		return h, nil
	default:
		return nil, &cfgerr.PluginShapeError{Key: key, Alias: alias, Reason: fmt.Sprintf("must be a function, got %T", v)}
	}
}

func manipulateField(raw map[string]any, alias string) (ManipulateOptionsFunc, error) {
	v, ok := raw["manipulateOptions"]
	if !ok || v == nil {
		return nil, nil
	}
	switch h := v.(type) {
	case ManipulateOptionsFunc:
		return h, nil
	case func(map[string]any, map[string]any):
		return h, nil
	default:
		return nil, &cfgerr.PluginShapeError{Key: "manipulateOptions", Alias: alias, Reason: fmt.Sprintf("must be a function, got %T", v)}
	}
}

// Materialize resolves a descriptor's value to the raw object it stands
// for: inline spec maps are used directly, factories are invoked with the
// given context, the descriptor's options (unless skip-options mode is set)
// and its directory. Preset expansion shares this path; it performs no
// plugin-shape validation.
func Materialize(api *Context, d *descriptor.Descriptor) (map[string]any, error) {
	var factory Factory
	switch v := d.Value.(type) {
	case map[string]any:
		return v, nil
	case Factory:
		factory = v
	case func(*Context, map[string]any, string) (map[string]any, error):
		factory = v
	default:
		return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s has unsupported value type %T", d.Alias, d.Value)}
	}

	opts := d.Options
	if d.SkipOptions {
		opts = nil
	}
	out, err := factory(api, opts, d.Dir)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s did not return an object", d.Alias)}
	}
	return out, nil
}
