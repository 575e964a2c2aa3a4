// Package backends maps backend names from configuration to vault
// implementations.
package backends

import (
	"fmt"
	"sort"

	"github.com/systmms/keychain/internal/vault/keyring"
	"github.com/systmms/keychain/internal/vault/memory"
	"github.com/systmms/keychain/pkg/keychain"
)

// Factory creates a vault.
type Factory func() (keychain.Vault, error)

// Registry manages backend creation and registration
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in backends: "keyring"
// (the OS credential store) and "memory" (process memory, for tests and
// dry runs).
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]Factory),
	}

	registry.RegisterFactory("keyring", func() (keychain.Vault, error) {
		return keyring.New(), nil
	})
	registry.RegisterFactory("memory", func() (keychain.Vault, error) {
		return memory.New(), nil
	})

	return registry
}

// RegisterFactory registers a factory under name, replacing any previous
// one.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.factories[name] = factory
}

// Create builds the backend registered under name.
func (r *Registry) Create(name string) (keychain.Vault, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
	return factory()
}

// SupportedTypes returns the registered backend names, sorted.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a backend is registered
func (r *Registry) IsSupported(name string) bool {
	_, exists := r.factories[name]
	return exists
}
