package chain

// Kind identifies where a configuration entry came from, which determines
// which options it may legally carry.
type Kind int

const (
	// RootArguments is the entry built from the caller's top-level arguments.
	// It is the only kind allowed to set root-only options such as filename.
	RootArguments Kind = iota
	// OptionsBag is an entry produced from a discovered configuration source,
	// such as a config file or an environment overlay.
	OptionsBag
	// Preset is an entry produced by expanding a preset declaration.
	Preset
)

// String returns a human-readable label for the kind, used in diagnostics.
func (k Kind) String() string {
	switch k {
	case RootArguments:
		return "arguments"
	case OptionsBag:
		return "options"
	case Preset:
		return "preset"
	default:
		return "unknown"
	}
}

// Entry is one configuration source to merge. Entries are immutable once
// produced by a Builder and are consumed exactly once by the resolver.
//
// Options is deliberately untyped: entries carry externally supplied data
// whose shape is validated by the resolver, not assumed by the model.
type Entry struct {
	Kind     Kind
	Options  any
	Location string // diagnostic label, e.g. a file path or "arguments"
	Dir      string // base path for resolving relative specifiers
}
