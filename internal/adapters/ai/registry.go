package ai

import (
	"fmt"
	"sync"
)

// ProviderRegistry stores all available LLM providers.
type ProviderRegistry struct {
	providers   map[string]Provider
	defaultName string
	mu          sync.RWMutex
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *ProviderRegistry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider
	return nil
}

// Get returns the provider by name.
func (r *ProviderRegistry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[NormalizeProviderName(name)]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", name)
	}

	return provider, nil
}

// MustGet returns the provider by name and panics if missing.
func (r *ProviderRegistry) MustGet(name string) Provider {
	provider, err := r.Get(name)
	if err != nil {
		panic(err)
	}

	return provider
}

// SetDefault marks a registered provider as the default.
func (r *ProviderRegistry) SetDefault(name string) error {
	normalized := NormalizeProviderName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[normalized]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	r.defaultName = normalized

	return nil
}

// Default returns the default provider.
func (r *ProviderRegistry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultName == "" {
		return nil, fmt.Errorf("no default provider configured")
	}

	provider, ok := r.providers[r.defaultName]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", r.defaultName)
	}

	return provider, nil
}

// List returns all registered providers.
func (r *ProviderRegistry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}

	return providers
}
