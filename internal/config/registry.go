package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quizzardhq/quizzard/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by [Registry.Create] when no factory is
// registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("provider not registered")

// LLMFactory constructs an LLM provider from its configuration entry.
type LLMFactory func(entry ProviderEntry) (llm.Provider, error)

// NamedProvider pairs a built provider with its configured name.
type NamedProvider struct {
	Name     string
	Provider llm.Provider
}

// Registry maps provider names to constructor functions. The main package
// registers all built-in factories at startup; [Registry.Build] then
// instantiates the providers named in the configuration, preserving the
// configured preference order.
//
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]LLMFactory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]LLMFactory)}
}

// Register wires a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, f LLMFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Registered reports whether a factory exists under name.
func (r *Registry) Registered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Create instantiates the provider registered under name with entry.
// Returns [ErrProviderNotRegistered] if no factory is registered.
func (r *Registry) Create(name string, entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("create provider %q: %w", name, ErrProviderNotRegistered)
	}
	p, err := f(entry)
	if err != nil {
		return nil, fmt.Errorf("create provider %q: %w", name, err)
	}
	return p, nil
}

// Build instantiates every provider listed in cfg.Order, in order.
// A name without a registered factory fails the whole build; a typo in the
// provider list should surface at startup, not at quiz time.
func (r *Registry) Build(cfg ProvidersConfig) ([]NamedProvider, error) {
	providers := make([]NamedProvider, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		entry, ok := cfg.Entries[name]
		if !ok {
			return nil, fmt.Errorf("build providers: %q listed in order but not configured", name)
		}
		p, err := r.Create(name, entry)
		if err != nil {
			return nil, fmt.Errorf("build providers: %w", err)
		}
		providers = append(providers, NamedProvider{Name: name, Provider: p})
	}
	return providers, nil
}
