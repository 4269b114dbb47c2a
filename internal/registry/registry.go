// Package registry provides the default name resolver: an in-process table
// mapping specifier names to the Go values (factories, spec maps, plugin
// instances) they stand for. One Registry instance exists per specifier kind
// (plugin, preset, parser, generator).
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/passforge/internal/cfgerr"
	"github.com/vk/passforge/internal/descriptor"
)

// Registry is a map-backed descriptor.Lookup. It is safe for concurrent
// registration and resolution.
type Registry struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]any
}

// New creates an empty registry. kind names what the registry holds
// ("plugin", "preset", ...) and appears in diagnostics.
func New(kind string) *Registry {
	return &Registry{
		kind:    kind,
		entries: make(map[string]any),
	}
}

// Register binds a name to a value. Registering the same name twice is a
// programmer error and panics.
func (r *Registry) Register(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("%s %q already registered", r.kind, name))
	}
	slog.Debug("Registering named value.", "kind", r.kind, "name", name)
	r.entries[name] = value
}

// Resolve implements descriptor.Lookup. The reported path identifies the
// registry slot the name resolved to; registries have no filesystem
// locations.
func (r *Registry) Resolve(name, _ string) (descriptor.Resolved, error) {
	r.mu.RLock()
	value, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return descriptor.Resolved{}, &cfgerr.ResolutionError{Msg: fmt.Sprintf("%s %q not found", r.kind, name)}
	}
	return descriptor.Resolved{Path: r.kind + ":" + name, Value: value}, nil
}

// Names returns all registered names in sorted order. The deterministic
// order keeps listings and diagnostics stable.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
