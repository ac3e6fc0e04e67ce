package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Factory builds a provider and its service client. It runs only for the
// provider actually selected, so credentials for the others are never needed.
type Factory func(ctx context.Context) (Provider, error)

// Registry manages all available providers
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a provider factory to the registry
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strings.ToLower(name)] = factory
}

// Get builds the provider registered under name
func (r *Registry) Get(ctx context.Context, name string) (Provider, error) {
	factory, exists := r.factories[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	provider, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
	}
	return provider, nil
}

// List returns all available provider names in sorted order
func (r *Registry) List() []string {
	var names []string
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProvider checks if a provider is registered
func (r *Registry) HasProvider(name string) bool {
	_, exists := r.factories[strings.ToLower(name)]
	return exists
}
