package confstack

// Provider supplies configuration data from a backing store (in-memory
// map, file, environment, remote key-value store). Nested mappings must
// be normalized to map[string]any; the returned tree is owned by the
// caller and must not alias provider-internal state.
type Provider interface {
	// Read returns the full current snapshot. It may be called
	// repeatedly and must return equal trees for unchanged backing data.
	Read() (map[string]any, error)

	// Typed reports whether leaf values carry native scalar types.
	// Untyped providers (environment, INI) yield string leaves that the
	// stacking engine coerces by inference from typed siblings.
	Typed() bool

	// Name identifies the provider kind (e.g. "yamlfile", "env").
	Name() string
}

// WritableProvider is implemented by providers that can persist a full
// snapshot. A Provider without it is inherently read-only; sources detect
// the capability by type assertion at construction.
type WritableProvider interface {
	Provider

	// Write persists the full snapshot, replacing the previous contents.
	Write(data map[string]any) error
}

// Item is one key/value pair yielded by Items on a Source or a
// StackedConfig. Values follow the same rules as Get: subsections are
// returned as *Source or *StackedConfig respectively.
type Item struct {
	Key   string
	Value any
}

// meta carries the capability identity of a root source. Derived
// sub-sources share their root's meta.
type meta struct {
	name     string
	typed    bool
	readonly bool // provider lacks write capability
	locked   bool // explicit lock requested at construction
}
