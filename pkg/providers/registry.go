package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider names to validated configurations. The login flow
// looks providers up by name at request time, so adding a provider is a
// registry change only.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register validates and adds a provider. Re-registering a name replaces
// the earlier entry.
func (r *Registry) Register(p Provider) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid provider %q: %w", p.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name] = p
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return Provider{}, fmt.Errorf("provider not registered: %s", name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
