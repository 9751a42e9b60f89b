package breaker

import (
	"sort"
	"sync"
)

// Registry owns named breakers. Breakers live until removed.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	opts     []Option
}

// NewRegistry creates a registry; opts are applied to every breaker it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		opts:     opts,
	}
}

// Get returns the breaker registered under name.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[name]
	return b, ok
}

// GetOrCreate returns the breaker for cfg.Name, creating it on first use.
// An existing breaker keeps its original configuration.
func (r *Registry) GetOrCreate(cfg Config, opts ...Option) (*Breaker, error) {
	if b, ok := r.Get(cfg.Name); ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[cfg.Name]; ok {
		return b, nil
	}

	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)

	b, err := New(cfg, all...)
	if err != nil {
		return nil, err
	}
	r.breakers[cfg.Name] = b
	return b, nil
}

// Remove drops a breaker from the registry.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.breakers[name]
	delete(r.breakers, name)
	return ok
}

// Names lists registered breaker names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshots returns a snapshot per breaker, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	names := r.Names()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		if b, ok := r.Get(name); ok {
			out = append(out, b.Snapshot())
		}
	}
	return out
}

// ResetAll resets every registered breaker.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	all := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		all = append(all, b)
	}
	r.mu.RUnlock()

	for _, b := range all {
		b.Reset()
	}
}
