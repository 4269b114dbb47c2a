package chain

import "context"

// Builder produces the fully ordered sequence of configuration entries for
// one resolution, given the entry built from the caller's root arguments.
//
// A nil slice with a nil error means "no applicable configuration": the
// resolution yields nothing, and that is not an error.
type Builder interface {
	Build(ctx context.Context, root *Entry) ([]*Entry, error)
}

// RootOnly is the trivial Builder for callers that supply all configuration
// programmatically: the chain is exactly the root-arguments entry.
type RootOnly struct{}

// Build implements the Builder interface.
func (RootOnly) Build(_ context.Context, root *Entry) ([]*Entry, error) {
	if root == nil {
		return nil, nil
	}
	return []*Entry{root}, nil
}
