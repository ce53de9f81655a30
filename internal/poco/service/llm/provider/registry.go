package provider

import (
	"fmt"
	"sync"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

// Registry is a thread-safe registry for LLM provider plugins.
type Registry struct {
	mu       sync.RWMutex
	registry map[string]spi.PluginFactory
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		registry: make(map[string]spi.PluginFactory),
	}
}

// Register adds a provider plugin factory to the registry. It fails when a
// plugin with the same name is already registered.
func (r *Registry) Register(name string, factory spi.PluginFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry[name]; ok {
		return fmt.Errorf("provider %s is already registered", name)
	}

	r.registry[name] = factory
	return nil
}

// MustRegister adds a provider plugin factory to the registry and panics
// when the name is already taken.
func (r *Registry) MustRegister(name string, factory spi.PluginFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the plugin factory for the given name.
func (r *Registry) Get(name string) (spi.PluginFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("provider %s is not registered", name)
	}
	return factory, nil
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	return names
}

// Merge combines another registry into this one. It fails when any name from
// the other registry is already registered here.
func (r *Registry) Merge(other *Registry) error {
	other.mu.RLock()
	defer other.mu.RUnlock()

	for name, factory := range other.registry {
		if err := r.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.registry)
}

// Range iterates over all registered providers until fn returns false.
func (r *Registry) Range(fn func(name string, factory spi.PluginFactory) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, factory := range r.registry {
		if !fn(name, factory) {
			break
		}
	}
}
