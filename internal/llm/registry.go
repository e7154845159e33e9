package llm

import (
	"fmt"
	"sync"

	"github.com/aden-hq/hive/internal/types"
)

// Registry manages provider registration and lookup. It is safe for
// concurrent use; once runs are executing, the registry is treated as
// read-only shared state.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Registering a duplicate
// name is an error.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return types.NewError(types.MODEL_PROVIDER_NOT_FOUND, "provider cannot be nil")
	}
	name := p.Name()
	if name == "" {
		return types.NewError(types.MODEL_PROVIDER_NOT_FOUND, "provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return types.NewError(types.MODEL_PROVIDER_NOT_FOUND,
			fmt.Sprintf("provider %q already registered", name))
	}
	r.providers[name] = p
	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, types.NewError(ErrProviderNotFound,
			fmt.Sprintf("provider %q is not registered", name))
	}
	return p, nil
}

// List returns the names of all registered providers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
