package confstack

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/confstack/confstack/internal/maputil"
)

// StackedConfig merges several sources into one logical configuration.
// Sources are consulted in priority order; by default the source given
// last outranks the ones before it. A plain read returns the value
// from the highest-priority source that holds the key, a registered
// Strategy folds the values of every holder instead, and a registered
// Converter rewrites values on their way in and out.
//
// Keys whose value is a subsection in every holding source resolve to
// a sublevel StackedConfig that stacks exactly those sources. Values
// read from untyped sources are coerced to the type a typed source
// declares for the same key.
type StackedConfig struct {
	sources    *SourceList
	strategies map[string]Strategy
	converters []Converter
	keychain   []string
	parent     *StackedConfig
	parentKey  string
}

// StackOption configures a stacked configuration at construction.
type StackOption func(*stackConfig)

type stackConfig struct {
	sources      []*Source
	strategies   map[string]Strategy
	converters   []Converter
	keychain     []string
	highestFirst bool
}

// WithSources supplies the sources to stack, in declaration order.
func WithSources(sources ...*Source) StackOption {
	return func(c *stackConfig) { c.sources = append(c.sources, sources...) }
}

// WithStrategy folds every occurrence of key across the sources with
// the given strategy instead of returning the highest-priority value.
// The strategy applies at any depth, so a strategy for "timeout" also
// folds "server.timeout".
func WithStrategy(key string, strategy Strategy) StackOption {
	return func(c *stackConfig) {
		if c.strategies == nil {
			c.strategies = make(map[string]Strategy)
		}
		c.strategies[key] = strategy
	}
}

// WithConverter rewrites the values of the keys matching the
// converter's pattern on every read and write. The first registered
// matching converter wins.
func WithConverter(converter Converter) StackOption {
	return func(c *stackConfig) { c.converters = append(c.converters, converter) }
}

// WithKeychain roots the configuration at the given subsection of the
// sources instead of at their top level.
func WithKeychain(keys ...string) StackOption {
	return func(c *stackConfig) { c.keychain = append(c.keychain, keys...) }
}

// HighestFirst ranks the first declared source highest instead of the
// last one.
func HighestFirst() StackOption {
	return func(c *stackConfig) { c.highestFirst = true }
}

// NewStack builds a stacked configuration from the given options. A
// stack without sources starts with a single empty writable map
// source so that reads report missing keys and writes succeed.
func NewStack(opts ...StackOption) (*StackedConfig, error) {
	var cfg stackConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.sources) == 0 {
		empty, err := NewMapSource(nil)
		if err != nil {
			return nil, err
		}
		cfg.sources = []*Source{empty}
	}
	if err := validateConverters("new stack", cfg.converters); err != nil {
		return nil, err
	}

	list, err := newSourceList(cfg.sources, cfg.keychain, cfg.highestFirst)
	if err != nil {
		return nil, err
	}

	strategies := make(map[string]Strategy, len(cfg.strategies))
	for key, strategy := range cfg.strategies {
		strategies[key] = strategy
	}

	return &StackedConfig{
		sources:    list,
		strategies: strategies,
		converters: append([]Converter(nil), cfg.converters...),
		keychain:   append([]string(nil), cfg.keychain...),
	}, nil
}

// subconfig builds the sublevel configuration below key. The roots
// arrive lowest priority first, matching the default list order.
func (c *StackedConfig) subconfig(roots []*Source, key string) (*StackedConfig, error) {
	keychain := append(append([]string(nil), c.keychain...), key)
	list, err := newSourceList(roots, keychain, false)
	if err != nil {
		return nil, err
	}
	return &StackedConfig{
		sources:    list,
		strategies: c.strategies,
		converters: c.converters,
		keychain:   keychain,
		parent:     c,
		parentKey:  key,
	}, nil
}

// Sources exposes the underlying source list. The list of the root
// configuration may be mutated to restack sources at runtime; the
// list of a sublevel configuration is immutable.
func (c *StackedConfig) Sources() *SourceList {
	return c.sources
}

// Root returns the top-level configuration this sublevel descended
// from. The root returns itself.
func (c *StackedConfig) Root() *StackedConfig {
	if c.parent == nil {
		return c
	}
	return c.parent.Root()
}

// Keychain returns the keys leading from the root configuration to
// this sublevel. Empty for the root.
func (c *StackedConfig) Keychain() []string {
	return append([]string(nil), c.keychain...)
}

// Get resolves key across the stacked sources.
//
// Sources are visited highest priority first. Without a strategy the
// first plain value wins. Subsections do not end the scan; they are
// collected, and when no plain value preempts them the collected
// holders form a sublevel StackedConfig. With a strategy every plain
// value takes part in the fold and the folded result wins over any
// collected subsection. String values from untyped sources are
// coerced to the type the highest-priority typed source declares for
// the same key.
func (c *StackedConfig) Get(key string) (any, error) {
	strategy, hasStrategy := c.strategies[key]
	converter, hasConverter := matchConverter(c.converters, c.keychain, key)

	traversed, err := c.sources.Traverse()
	if err != nil {
		return nil, err
	}

	var (
		acc      Accumulated
		deferred []*Source
	)

	for _, src := range traversed {
		value, err := src.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if hasConverter {
			if !src.IsTyped() {
				value, err = c.typedValue(traversed, key, value)
				if err != nil {
					return nil, err
				}
			}
			value, err = converter.customize(value)
			if err != nil {
				return nil, err
			}
		}

		if sub, ok := value.(*Source); ok {
			// Prepending while scanning downwards leaves the
			// sublevel sources lowest priority first.
			deferred = append([]*Source{sub.Root()}, deferred...)
			continue
		}

		if !hasConverter && !src.IsTyped() {
			value, err = c.typedValue(traversed, key, value)
			if err != nil {
				return nil, err
			}
		}

		if hasStrategy {
			folded, err := strategy(acc, value)
			if err != nil {
				return nil, err
			}
			acc = accumulate(folded)
			continue
		}
		return value, nil
	}

	switch {
	case hasStrategy && !acc.Empty():
		return acc.Value(), nil
	case len(deferred) > 0:
		return c.subconfig(deferred, key)
	default:
		return nil, notFound(key)
	}
}

// typedValue coerces a string read from an untyped source to the type
// the highest-priority typed source declares for key. Without a typed
// declaration, or for values that are not strings, the raw value is
// returned unchanged.
func (c *StackedConfig) typedValue(traversed []*Source, key string, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return raw, nil
	}
	for _, src := range traversed {
		if !src.IsTyped() {
			continue
		}
		model, err := src.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return convertToType(s, model)
	}
	return raw, nil
}

// GetDefault returns def when key is absent from every source. Every
// other error passes through.
func (c *StackedConfig) GetDefault(key string, def any) (any, error) {
	value, err := c.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value at key. The write lands in the highest-priority
// source that already holds the key, even when that write then fails
// because the source is locked. A key held by no source lands in the
// highest-priority writable source; without one the write fails with
// ErrNoWritableSource.
func (c *StackedConfig) Set(key string, value any) error {
	traversed, err := c.sources.Traverse()
	if err != nil {
		return err
	}
	for _, src := range traversed {
		ok, err := src.Has(key)
		if err != nil {
			return err
		}
		if ok {
			return src.Set(key, value)
		}
	}

	writable, err := c.sources.Writable()
	if err != nil {
		return err
	}
	if len(writable) == 0 {
		return ErrNoWritableSource
	}
	return writable[0].Set(key, value)
}

// SetDefault returns the value at key, storing value first when no
// source holds the key. The result is read back through the stack so
// strategies, converters and type coercion apply.
func (c *StackedConfig) SetDefault(key string, value any) (any, error) {
	current, err := c.Get(key)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	if err := c.Set(key, value); err != nil {
		return nil, err
	}
	return c.Get(key)
}

// Delete removes key from every source that holds it. Locked and
// read-only holders fail the removal.
func (c *StackedConfig) Delete(key string) error {
	traversed, err := c.sources.Traverse()
	if err != nil {
		return err
	}
	found := false
	for _, src := range traversed {
		ok, err := src.Has(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := src.Delete(key); err != nil {
			return err
		}
		found = true
	}
	if !found {
		return notFound(key)
	}
	return nil
}

// Keys returns the union of the keys of every source, sorted.
func (c *StackedConfig) Keys() ([]string, error) {
	traversed, err := c.sources.Traverse()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var keys []string
	for _, src := range traversed {
		srcKeys, err := src.Keys()
		if err != nil {
			return nil, err
		}
		for _, key := range srcKeys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Values returns the resolved value of every key in sorted key order.
func (c *StackedConfig) Values() ([]any, error) {
	items, err := c.Items()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item.Value
	}
	return values, nil
}

// Items returns the resolved key/value pairs in sorted key order.
// Unlike a single-key Get, which lets a plain value shadow a
// subsection of lower priority, enumerating the whole level checks
// that every source agrees on each key's shape and reports a
// ConflictError when one declares a subsection where another holds a
// plain value.
func (c *StackedConfig) Items() ([]Item, error) {
	traversed, err := c.sources.Traverse()
	if err != nil {
		return nil, err
	}
	keys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		if err := checkShapes(traversed, key); err != nil {
			return nil, err
		}
		value, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Key: key, Value: value})
	}
	return items, nil
}

// checkShapes verifies that every source holding key agrees on
// whether it names a subsection or a plain value.
func checkShapes(traversed []*Source, key string) error {
	first := true
	var wantSection bool
	for _, src := range traversed {
		value, err := src.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		_, isSection := value.(*Source)
		if first {
			first, wantSection = false, isSection
			continue
		}
		if isSection != wantSection {
			return &ConflictError{Key: key, SourceName: src.Name(), WantSection: wantSection}
		}
	}
	return nil
}

// Len returns the number of distinct keys across all sources.
func (c *StackedConfig) Len() (int, error) {
	keys, err := c.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Has reports whether any source holds key at this level. Membership
// does not resolve the value, so shape conflicts go unnoticed here.
func (c *StackedConfig) Has(key string) (bool, error) {
	traversed, err := c.sources.Traverse()
	if err != nil {
		return false, err
	}
	for _, src := range traversed {
		ok, err := src.Has(key)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Update merges the given mappings, sources or stacked configurations
// into the stack, later arguments overriding earlier ones. Every pair
// runs through Set, so values land in the sources that already hold
// their keys.
func (c *StackedConfig) Update(others ...any) error {
	for _, other := range others {
		switch o := other.(type) {
		case map[string]any:
			keys := make([]string, 0, len(o))
			for key := range o {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if err := c.Set(key, o[key]); err != nil {
					return err
				}
			}
		case *Source:
			items, err := o.Items()
			if err != nil {
				return err
			}
			for _, item := range items {
				value := item.Value
				if sub, ok := value.(*Source); ok {
					dumped, err := sub.Dump()
					if err != nil {
						return err
					}
					value = dumped
				}
				if err := c.Set(item.Key, value); err != nil {
					return err
				}
			}
		case *StackedConfig:
			items, err := o.Items()
			if err != nil {
				return err
			}
			for _, item := range items {
				value := item.Value
				if sub, ok := value.(*StackedConfig); ok {
					dumped, err := sub.Dump()
					if err != nil {
						return err
					}
					value = dumped
				}
				if err := c.Set(item.Key, value); err != nil {
					return err
				}
			}
		default:
			return &ValidationError{Op: "update", Reason: "unsupported argument type, want map[string]any, *Source or *StackedConfig"}
		}
	}
	return nil
}

// Dump materializes the merged configuration into plain nested
// mappings. Strategies, converters and type coercion apply exactly as
// they do for reads; shape conflicts between sources surface as
// ConflictErrors.
func (c *StackedConfig) Dump() (map[string]any, error) {
	items, err := c.Items()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(items))
	for _, item := range items {
		if sub, ok := item.Value.(*StackedConfig); ok {
			nested, err := sub.Dump()
			if err != nil {
				return nil, err
			}
			out[item.Key] = nested
			continue
		}
		out[item.Key] = maputil.CopyValue(item.Value)
	}
	return out, nil
}

// Path descends the given keys and returns the final value.
func (c *StackedConfig) Path(keys ...string) (any, error) {
	if len(keys) == 0 {
		return c, nil
	}
	node := c
	for i, key := range keys {
		value, err := node.Get(key)
		if err != nil {
			return nil, err
		}
		if i == len(keys)-1 {
			return value, nil
		}
		sub, ok := value.(*StackedConfig)
		if !ok {
			return nil, notSection(key)
		}
		node = sub
	}
	return node, nil
}

// Section descends the given keys, which must name a subsection in at
// least one source at every level.
func (c *StackedConfig) Section(keys ...string) (*StackedConfig, error) {
	node := c
	for _, key := range keys {
		value, err := node.Get(key)
		if err != nil {
			return nil, err
		}
		sub, ok := value.(*StackedConfig)
		if !ok {
			return nil, notSection(key)
		}
		node = sub
	}
	return node, nil
}

// IsWritable reports whether at least one source accepts writes.
func (c *StackedConfig) IsWritable() (bool, error) {
	writable, err := c.sources.Writable()
	if err != nil {
		return false, err
	}
	return len(writable) > 0, nil
}

// IsTyped reports whether at least one source carries native types.
func (c *StackedConfig) IsTyped() (bool, error) {
	typed, err := c.sources.Typed()
	if err != nil {
		return false, err
	}
	return len(typed) > 0, nil
}

// Provenance reports where the value of key comes from.
type Provenance struct {
	// Key is the fully qualified dotted key.
	Key string

	// Source names the source that supplies the value on a plain
	// read. Empty when no source holds the key.
	Source string

	// Sources names every source holding the key, highest priority
	// first.
	Sources []string

	// Strategy reports that a registered strategy folds all holders
	// into the final value.
	Strategy bool

	// Converted reports that a registered converter rewrites the
	// value on its way out.
	Converted bool
}

// Provenance resolves which sources contribute the value of key. Keys
// held by no source report ErrKeyNotFound.
func (c *StackedConfig) Provenance(key string) (Provenance, error) {
	traversed, err := c.sources.Traverse()
	if err != nil {
		return Provenance{}, err
	}

	p := Provenance{Key: c.qualify(key)}
	for _, src := range traversed {
		ok, err := src.Has(key)
		if err != nil {
			return Provenance{}, err
		}
		if ok {
			p.Sources = append(p.Sources, src.Name())
		}
	}
	if len(p.Sources) == 0 {
		return Provenance{}, notFound(key)
	}
	p.Source = p.Sources[0]
	_, p.Strategy = c.strategies[key]
	_, p.Converted = matchConverter(c.converters, c.keychain, key)
	return p, nil
}

func (c *StackedConfig) qualify(key string) string {
	if len(c.keychain) == 0 {
		return key
	}
	return strings.Join(append(c.Keychain(), key), ".")
}

// String returns the value at key as a string.
func (c *StackedConfig) String(key string) (string, error) {
	value, err := c.Get(key)
	if err != nil {
		return "", err
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", typeMismatch("string", key, value)
}

// Int returns the value at key as an int. Strings are parsed, int64
// values are narrowed.
func (c *StackedConfig) Int(key string) (int, error) {
	value, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}
	return 0, typeMismatch("int", key, value)
}

// Float returns the value at key as a float64. Strings are parsed,
// integers are widened.
func (c *StackedConfig) Float(key string) (float64, error) {
	value, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return 0, typeMismatch("float", key, value)
}

// Bool returns the value at key as a bool. Strings are parsed with
// the usual truthy tokens such as "yes", "on" and "1".
func (c *StackedConfig) Bool(key string) (bool, error) {
	value, err := c.Get(key)
	if err != nil {
		return false, err
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if b, ok := parseBoolToken(v); ok {
			return b, nil
		}
	}
	return false, typeMismatch("bool", key, value)
}

// Duration returns the value at key as a time.Duration. Strings are
// parsed with time.ParseDuration.
func (c *StackedConfig) Duration(key string) (time.Duration, error) {
	value, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, nil
		}
	}
	return 0, typeMismatch("duration", key, value)
}

// Strings returns the value at key as a string slice. A single string
// splits on commas the same way untyped list coercion does.
func (c *StackedConfig) Strings(key string) ([]string, error) {
	value, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, len(v))
		for i, element := range v {
			s, ok := element.(string)
			if !ok {
				return nil, typeMismatch("string list", key, value)
			}
			out[i] = s
		}
		return out, nil
	case string:
		split := splitList(v)
		out := make([]string, len(split))
		for i, element := range split {
			out[i] = element.(string)
		}
		return out, nil
	}
	return nil, typeMismatch("string list", key, value)
}

func typeMismatch(want, key string, got any) error {
	return &ValidationError{
		Op:     "read " + want,
		Reason: fmt.Sprintf("key %q holds %T", key, got),
	}
}
