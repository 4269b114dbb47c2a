package plugin

import (
	"github.com/vk/passforge/internal/visitor"
)

// Hook is one pre or post lifecycle function. Composed hooks are kept as an
// ordered list and invoked in sequence; each receives the same argument.
type Hook func(file any) error

// ManipulateOptionsFunc lets a plugin adjust the merged options and parser
// options before compilation begins.
type ManipulateOptionsFunc func(opts, parserOpts map[string]any)

// Factory builds a raw plugin (or preset) object. It receives the fixed
// instantiation context, the use-site options (nil in skip-options mode),
// and the base directory of the declaring config entry.
type Factory func(api *Context, opts map[string]any, dir string) (map[string]any, error)

// Context is the immutable value handed to every factory invocation. It is
// threaded explicitly at each call site; there is no process-wide instance.
type Context struct {
	// Version is the engine version factories may feature-detect against.
	Version string
}

// Plugin is an instantiated, validated unit transform. A Plugin is created
// once, shared by every pass entry that references it, and never mutated
// after creation; downstream identity checks rely on that.
type Plugin struct {
	// Name is the plugin's self-reported name, empty if it declared none.
	Name string
	// Pre and Post are the composed lifecycle hooks, inherited hooks first.
	Pre  []Hook
	Post []Hook
	// ManipulateOptions are the composed option hooks, inherited first.
	ManipulateOptions []ManipulateOptionsFunc
	// Visitor is the normalized, merged visitor map. Never nil.
	Visitor visitor.Map
	// Alias labels the declaration site the plugin was instantiated from.
	Alias string
}

// RunPre invokes the composed pre hooks in order, stopping at the first
// error.
func (p *Plugin) RunPre(file any) error {
	for _, hook := range p.Pre {
		if err := hook(file); err != nil {
			return err
		}
	}
	return nil
}

// RunPost invokes the composed post hooks in order, stopping at the first
// error.
func (p *Plugin) RunPost(file any) error {
	for _, hook := range p.Post {
		if err := hook(file); err != nil {
			return err
		}
	}
	return nil
}

// Manipulate invokes the composed manipulateOptions hooks in order.
func (p *Plugin) Manipulate(opts, parserOpts map[string]any) {
	for _, fn := range p.ManipulateOptions {
		fn(opts, parserOpts)
	}
}
