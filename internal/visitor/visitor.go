// Package visitor models the traversal maps plugins declare: a mapping from
// AST node kind to the handlers that run when the compilation engine enters
// or exits a node of that kind.
//
// The resolver only needs two operations from this model — normalizing a
// raw, shorthand-ridden map into canonical form, and merging two canonical
// maps — so both are behind the Normalizer interface, with Default as the
// in-tree implementation.
package visitor

import (
	"fmt"

	"github.com/vk/passforge/internal/cfgerr"
)

// HandlerFunc is one traversal handler. The engine calls it with the node
// being visited and the per-file state.
type HandlerFunc func(node any, state any)

// NodeHandlers is the canonical form of the handlers for one node kind:
// ordered enter and exit lists.
type NodeHandlers struct {
	Enter []HandlerFunc
	Exit  []HandlerFunc
}

// Map is a normalized visitor map keyed by node kind.
type Map map[string]*NodeHandlers

// Normalizer is the contract the resolver consumes.
type Normalizer interface {
	// Normalize expands a raw visitor map (shorthand function entries,
	// enter/exit sub-maps) into canonical form without mutating the input.
	Normalize(raw map[string]any) (Map, error)
	// Merge combines two normalized maps into a new one. Handler lists for
	// a node kind present in both are concatenated, base first.
	Merge(base, override Map) Map
}

// Default is the standard Normalizer implementation.
type Default struct{}

// Normalize implements the Normalizer interface.
func (Default) Normalize(raw map[string]any) (Map, error) {
	out := make(Map, len(raw))
	for kind, value := range raw {
		handlers, err := normalizeEntry(kind, value)
		if err != nil {
			return nil, err
		}
		out[kind] = handlers
	}
	return out, nil
}

func normalizeEntry(kind string, value any) (*NodeHandlers, error) {
	switch v := value.(type) {
	case HandlerFunc:
		return &NodeHandlers{Enter: []HandlerFunc{v}}, nil
	case func(any, any):
		return &NodeHandlers{Enter: []HandlerFunc{v}}, nil
	case *NodeHandlers:
		return cloneHandlers(v), nil
	case map[string]any:
		handlers := &NodeHandlers{}
		for phase, h := range v {
			fns, err := handlerList(kind, phase, h)
			if err != nil {
				return nil, err
			}
			switch phase {
			case "enter":
				handlers.Enter = fns
			case "exit":
				handlers.Exit = fns
			default:
				return nil, &cfgerr.TypeError{Msg: fmt.Sprintf("visitor for %q has unsupported phase %q", kind, phase)}
			}
		}
		return handlers, nil
	default:
		return nil, &cfgerr.TypeError{Msg: fmt.Sprintf("visitor for %q must be a function or an enter/exit map, got %T", kind, value)}
	}
}

func handlerList(kind, phase string, value any) ([]HandlerFunc, error) {
	switch h := value.(type) {
	case HandlerFunc:
		return []HandlerFunc{h}, nil
	case func(any, any):
		return []HandlerFunc{h}, nil
	case []HandlerFunc:
		return append([]HandlerFunc(nil), h...), nil
	default:
		return nil, &cfgerr.TypeError{Msg: fmt.Sprintf("visitor %s handler for %q must be a function or list of functions, got %T", phase, kind, value)}
	}
}

// Merge implements the Normalizer interface.
func (Default) Merge(base, override Map) Map {
	out := make(Map, len(base)+len(override))
	for kind, handlers := range base {
		out[kind] = cloneHandlers(handlers)
	}
	for kind, handlers := range override {
		existing, ok := out[kind]
		if !ok {
			out[kind] = cloneHandlers(handlers)
			continue
		}
		existing.Enter = append(existing.Enter, handlers.Enter...)
		existing.Exit = append(existing.Exit, handlers.Exit...)
	}
	return out
}

func cloneHandlers(h *NodeHandlers) *NodeHandlers {
	return &NodeHandlers{
		Enter: append([]HandlerFunc(nil), h.Enter...),
		Exit:  append([]HandlerFunc(nil), h.Exit...),
	}
}
