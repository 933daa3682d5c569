package confstack

import "github.com/confstack/confstack/internal/maputil"

// mapProvider backs NewMapSource. The seed map stays the live backing
// store; reads deep-copy it so returned trees never alias it, and writes
// detach from it by storing a copy of the new tree.
type mapProvider struct {
	store map[string]any
}

func (p *mapProvider) Read() (map[string]any, error) {
	return maputil.Copy(p.store), nil
}

func (p *mapProvider) Write(data map[string]any) error {
	p.store = maputil.Copy(data)
	return nil
}

func (p *mapProvider) Typed() bool { return true }

func (p *mapProvider) Name() string { return "map" }

// NewMapSource creates a typed, writable in-memory source over data. The
// map is used as the live backing store, so external mutations through
// the caller's reference are visible to uncached reads; a nil map starts
// empty.
func NewMapSource(data map[string]any, opts ...Option) (*Source, error) {
	if data == nil {
		data = make(map[string]any)
	}
	return New(&mapProvider{store: data}, opts...)
}
