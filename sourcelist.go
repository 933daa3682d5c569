package confstack

// SourceList holds the sources that make up a stacked configuration.
// The list keeps declaration order; priority derives from it. By
// default the source declared last outranks the ones declared before
// it, while a stack built with HighestFirst ranks the first source
// highest.
//
// A list that belongs to a sublevel configuration is immutable. It
// shares its sources with the root stack, and mutating the stack
// halfway down a keychain would desynchronize the two views.
type SourceList struct {
	sources      []*Source
	keychain     []string
	highestFirst bool
}

// NewSourceList builds a mutable top-level list from the given sources.
func NewSourceList(sources ...*Source) (*SourceList, error) {
	return newSourceList(sources, nil, false)
}

func newSourceList(sources []*Source, keychain []string, highestFirst bool) (*SourceList, error) {
	if err := validateSources("new source list", sources); err != nil {
		return nil, err
	}
	list := &SourceList{
		sources:      append([]*Source(nil), sources...),
		keychain:     keychain,
		highestFirst: highestFirst,
	}
	return list, nil
}

func validateSources(op string, sources []*Source) error {
	for _, src := range sources {
		if src == nil {
			return &ValidationError{Op: op, Reason: "a source must be a non-nil *Source"}
		}
	}
	return nil
}

func (l *SourceList) checkMutable() error {
	if len(l.keychain) > 0 {
		return ErrImmutableSourceList
	}
	return nil
}

// Append adds src behind the existing sources. Under the default
// priority order that makes it the new highest-priority source.
func (l *SourceList) Append(src *Source) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if err := validateSources("append source", []*Source{src}); err != nil {
		return err
	}
	l.sources = append(l.sources, src)
	return nil
}

// Insert places src at position i, shifting the sources behind it up.
// An index beyond either end is clamped, so Insert(0, src) always
// prepends and a large index appends.
func (l *SourceList) Insert(i int, src *Source) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if err := validateSources("insert source", []*Source{src}); err != nil {
		return err
	}
	if i < 0 {
		i = 0
	}
	if i > len(l.sources) {
		i = len(l.sources)
	}
	l.sources = append(l.sources, nil)
	copy(l.sources[i+1:], l.sources[i:])
	l.sources[i] = src
	return nil
}

// Set replaces the source at position i.
func (l *SourceList) Set(i int, src *Source) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if err := validateSources("set source", []*Source{src}); err != nil {
		return err
	}
	if i < 0 || i >= len(l.sources) {
		return &ValidationError{Op: "set source", Reason: "index out of range"}
	}
	l.sources[i] = src
	return nil
}

// Remove drops the source at position i.
func (l *SourceList) Remove(i int) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.sources) {
		return &ValidationError{Op: "remove source", Reason: "index out of range"}
	}
	l.sources = append(l.sources[:i], l.sources[i+1:]...)
	return nil
}

// At returns the source at position i in declaration order. Like a
// slice index, i must be in range.
func (l *SourceList) At(i int) *Source {
	return l.sources[i]
}

// Len returns the number of sources in the list.
func (l *SourceList) Len() int {
	return len(l.sources)
}

// Keychain returns the keys leading from the root configuration to the
// sublevel this list serves. Empty for a top-level list.
func (l *SourceList) Keychain() []string {
	return append([]string(nil), l.keychain...)
}

// ordered returns the sources in traversal order, highest priority
// first.
func (l *SourceList) ordered() []*Source {
	out := make([]*Source, len(l.sources))
	if l.highestFirst {
		copy(out, l.sources)
		return out
	}
	for i, src := range l.sources {
		out[len(l.sources)-1-i] = src
	}
	return out
}

// Traverse resolves every source at the list's keychain, highest
// priority first. Each keychain segment must name a subsection in
// every source; a missing segment or a plain value fails the whole
// traversal.
func (l *SourceList) Traverse() ([]*Source, error) {
	out := make([]*Source, 0, len(l.sources))
	for _, src := range l.ordered() {
		node := src
		for _, key := range l.keychain {
			value, err := node.Get(key)
			if err != nil {
				return nil, err
			}
			sub, ok := value.(*Source)
			if !ok {
				return nil, notSection(key)
			}
			node = sub
		}
		out = append(out, node)
	}
	return out, nil
}

// Typed returns the traversed sources whose values carry native types,
// highest priority first.
func (l *SourceList) Typed() ([]*Source, error) {
	return l.filter((*Source).IsTyped)
}

// Writable returns the traversed sources that accept writes, highest
// priority first.
func (l *SourceList) Writable() ([]*Source, error) {
	return l.filter((*Source).IsWritable)
}

func (l *SourceList) filter(keep func(*Source) bool) ([]*Source, error) {
	traversed, err := l.Traverse()
	if err != nil {
		return nil, err
	}
	out := traversed[:0]
	for _, src := range traversed {
		if keep(src) {
			out = append(out, src)
		}
	}
	return out, nil
}
