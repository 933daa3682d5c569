package confstack

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/confstack/confstack/internal/maputil"
)

// Source wraps one configuration provider behind a uniform tree-shaped
// read/write contract. A root source owns a Provider; accessing a key
// that holds a nested mapping yields a derived sub-source, a view that
// delegates every read and write to its parent at that key. Derived
// views share the root's capabilities, converters and cache.
//
// Reads run through the fixed pipeline cache, default-fill, convert;
// writes through reset-convert, lock-check, base write.
type Source struct {
	provider Provider
	writer   WritableProvider // nil when the provider is read-only

	parent    *Source
	parentKey string

	meta       meta
	keychain   []string
	converters []Converter

	cached bool
	cache  map[string]any

	defaultValue any
	hasDefault   bool
}

// Option configures a root source at construction.
type Option func(*sourceConfig)

type sourceConfig struct {
	cached       bool
	locked       bool
	converters   []Converter
	defaultValue any
	hasDefault   bool
}

// Cached makes the source keep a snapshot of the provider data after the
// first read. Writes update the snapshot instead of the provider until
// WriteCache flushes it; ClearCache drops it.
func Cached() Option {
	return func(c *sourceConfig) { c.cached = true }
}

// Locked rejects every write with ErrLocked even when the provider could
// persist. Distinguishable from ErrReadOnly, which reports a provider
// without write capability.
func Locked() Option {
	return func(c *sourceConfig) { c.locked = true }
}

// WithConverters registers converters on the source. Registration order
// is the match priority: register exact keys before wildcard patterns to
// give them precedence.
func WithConverters(converters ...Converter) Option {
	return func(c *sourceConfig) { c.converters = append(c.converters, converters...) }
}

// WithDefaultForMissing stores a copy of value at any key a read misses,
// then retries the read, so lookups never report ErrKeyNotFound.
func WithDefaultForMissing(value any) Option {
	return func(c *sourceConfig) {
		c.defaultValue = value
		c.hasDefault = true
	}
}

// AutoSubsection fills missing keys with an empty subsection, letting
// writes create intermediate levels on the fly.
func AutoSubsection() Option {
	return WithDefaultForMissing(map[string]any{})
}

// New creates a root source over the given provider. Write capability is
// detected by type assertion: a provider that does not implement
// WritableProvider makes the source read-only.
func New(p Provider, opts ...Option) (*Source, error) {
	if p == nil {
		return nil, &ValidationError{Op: "new source", Reason: "provider must not be nil"}
	}
	cfg := &sourceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validateConverters("new source", cfg.converters); err != nil {
		return nil, err
	}

	s := &Source{
		provider:     p,
		meta:         meta{name: p.Name(), typed: p.Typed(), locked: cfg.locked},
		converters:   cfg.converters,
		cached:       cfg.cached,
		defaultValue: cfg.defaultValue,
		hasDefault:   cfg.hasDefault,
	}
	if w, ok := p.(WritableProvider); ok {
		s.writer = w
	} else {
		s.meta.readonly = true
	}
	return s, nil
}

// child returns the derived view bound to key below this node.
func (s *Source) child(key string) *Source {
	return &Source{
		parent:       s,
		parentKey:    key,
		meta:         s.meta,
		keychain:     append(append([]string{}, s.keychain...), key),
		converters:   s.converters,
		defaultValue: s.defaultValue,
		hasDefault:   s.hasDefault,
	}
}

// data resolves the mapping backing this node. Roots read the provider,
// or the cache snapshot once one exists; derived views index into the
// parent's data. Provider errors pass through unchanged.
func (s *Source) data() (map[string]any, error) {
	if s.parent != nil {
		parentData, err := s.parent.data()
		if err != nil {
			return nil, err
		}
		raw, ok := parentData[s.parentKey]
		if !ok {
			return nil, notFound(s.parentKey)
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, notSection(s.parentKey)
		}
		return m, nil
	}

	if s.cached && s.cache != nil {
		return s.cache, nil
	}
	m, err := s.provider.Read()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]any)
	}
	if s.cached {
		s.cache = m
	}
	return m, nil
}

// setData persists the mapping for this node: derived views read-modify-
// write through the parent chain up to the owning root, which either
// updates the cache snapshot or writes to the provider.
func (s *Source) setData(data map[string]any) error {
	if s.parent != nil {
		parentData, err := s.parent.data()
		if err != nil {
			return err
		}
		parentData[s.parentKey] = data
		return s.parent.setData(parentData)
	}

	if s.cached {
		s.cache = data
		return nil
	}
	return s.writer.Write(data)
}

func (s *Source) checkWritable() error {
	if s.meta.readonly {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.meta.name)
	}
	if s.meta.locked {
		return fmt.Errorf("%w: %s", ErrLocked, s.meta.name)
	}
	return nil
}

// Get returns the value stored at key. A nested mapping is returned as a
// derived *Source; a matching converter's Customize is applied last,
// including to whole subsections. Missing keys report ErrKeyNotFound
// unless a default-for-missing is configured, in which case the default
// is stored and the read retried.
func (s *Source) Get(key string) (any, error) {
	v, err := s.lookup(key)
	if err != nil && errors.Is(err, ErrKeyNotFound) && s.hasDefault {
		if serr := s.Set(key, maputil.CopyValue(s.defaultValue)); serr != nil {
			return nil, serr
		}
		return s.lookup(key)
	}
	return v, err
}

func (s *Source) lookup(key string) (any, error) {
	data, err := s.data()
	if err != nil {
		return nil, err
	}
	raw, ok := data[key]
	if !ok {
		return nil, notFound(key)
	}

	var value any = raw
	if maputil.IsSection(raw) {
		value = s.child(key)
	}
	if conv, matched := matchConverter(s.converters, s.keychain, key); matched {
		return conv.customize(value)
	}
	return value, nil
}

// GetDefault returns def when key is absent. Every other error, adapter
// failures included, passes through.
func (s *Source) GetDefault(key string, def any) (any, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// Set stores value at key. A matching converter's Reset runs first, then
// the write is rejected if the source is read-only or locked. Derived
// views persist through the parent chain to the owning root.
func (s *Source) Set(key string, value any) error {
	if conv, matched := matchConverter(s.converters, s.keychain, key); matched {
		v, err := conv.reset(value)
		if err != nil {
			return err
		}
		value = v
	}
	if err := s.checkWritable(); err != nil {
		return err
	}

	data, err := s.data()
	if err != nil {
		return err
	}
	data[key] = value
	return s.setData(data)
}

// SetDefault returns the value at key, storing value first when the key
// is absent. The result is read back so converters apply.
func (s *Source) SetDefault(key string, value any) (any, error) {
	v, err := s.Get(key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	if err := s.Set(key, value); err != nil {
		return nil, err
	}
	return s.Get(key)
}

// Delete removes key from this node. Write rules match Set.
func (s *Source) Delete(key string) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	data, err := s.data()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return notFound(key)
	}
	delete(data, key)
	return s.setData(data)
}

// Keys returns the keys at this node, sorted for determinism.
func (s *Source) Keys() ([]string, error) {
	data, err := s.data()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Values returns the values at this node in key order, converters
// applied and subsections wrapped the same way Get wraps them.
func (s *Source) Values() ([]any, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(keys))
	for _, key := range keys {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Items returns the key/value pairs at this node in key order.
func (s *Source) Items() ([]Item, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Key: key, Value: v})
	}
	return items, nil
}

// Len returns the number of keys at this node.
func (s *Source) Len() (int, error) {
	data, err := s.data()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Has reports whether key exists at this node.
func (s *Source) Has(key string) (bool, error) {
	data, err := s.data()
	if err != nil {
		return false, err
	}
	_, ok := data[key]
	return ok, nil
}

// Update merges the given mappings, sources or stacked configurations
// into this node, later arguments overriding earlier ones, then
// persists. Converters do not run; values land as given.
func (s *Source) Update(others ...any) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	data, err := s.data()
	if err != nil {
		return err
	}
	for _, other := range others {
		switch o := other.(type) {
		case map[string]any:
			for k, v := range o {
				data[k] = maputil.CopyValue(v)
			}
		case *Source:
			dump, err := o.Dump()
			if err != nil {
				return err
			}
			for k, v := range dump {
				data[k] = v
			}
		case *StackedConfig:
			dump, err := o.Dump()
			if err != nil {
				return err
			}
			for k, v := range dump {
				data[k] = v
			}
		default:
			return &ValidationError{
				Op:     "update",
				Reason: fmt.Sprintf("cannot merge %T, want map[string]any, *Source or *StackedConfig", other),
			}
		}
	}
	return s.setData(data)
}

// Dump materializes the tree rooted at this node into plain nested
// mappings. Converters apply recursively; a converter producing a
// complex object is inserted as-is. The result never aliases provider
// or cache memory.
func (s *Source) Dump() (map[string]any, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if sub, ok := v.(*Source); ok {
			nested, err := sub.Dump()
			if err != nil {
				return nil, err
			}
			out[key] = nested
			continue
		}
		out[key] = maputil.CopyValue(v)
	}
	return out, nil
}

// Path descends the given keys and returns the final value, the explicit
// counterpart of chained attribute access.
func (s *Source) Path(keys ...string) (any, error) {
	var current any = s
	for _, key := range keys {
		node, ok := current.(*Source)
		if !ok {
			return nil, notSection(key)
		}
		v, err := node.Get(key)
		if err != nil {
			return nil, err
		}
		current = v
	}
	return current, nil
}

// Section descends the given keys, which must name a subsection.
func (s *Source) Section(keys ...string) (*Source, error) {
	v, err := s.Path(keys...)
	if err != nil {
		return nil, err
	}
	sub, ok := v.(*Source)
	if !ok {
		return nil, notSection(strings.Join(keys, "."))
	}
	return sub, nil
}

// Root walks the parent links of a derived view up to the source owning
// the provider. A root source returns itself.
func (s *Source) Root() *Source {
	node := s
	for node.parent != nil {
		node = node.parent
	}
	return node
}

// Name identifies the provider kind backing this source.
func (s *Source) Name() string {
	return s.meta.name
}

// IsTyped reports whether leaf values carry native types. Untyped
// sources yield strings that the stacking engine coerces by inference.
func (s *Source) IsTyped() bool {
	return s.meta.typed
}

// IsWritable reports whether writes can succeed: the provider persists
// and no explicit lock is set.
func (s *Source) IsWritable() bool {
	return !s.meta.readonly && !s.meta.locked
}

// WriteCache flushes the cache snapshot to the provider. Derived views
// delegate to their root. Without a snapshot there is nothing to flush.
func (s *Source) WriteCache() error {
	root := s.Root()
	if err := root.checkWritable(); err != nil {
		return err
	}
	if root.cache == nil {
		return nil
	}
	return root.writer.Write(root.cache)
}

// ClearCache drops the cache snapshot so the next read hits the provider
// again. Derived views delegate to their root.
func (s *Source) ClearCache() {
	s.Root().cache = nil
}

// String identifies the source and its position for diagnostics.
func (s *Source) String() string {
	if len(s.keychain) == 0 {
		return s.meta.name
	}
	return s.meta.name + ":" + strings.Join(s.keychain, ".")
}
