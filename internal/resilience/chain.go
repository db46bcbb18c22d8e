package resilience

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizzardhq/quizzard/pkg/provider/llm"
)

// ErrAllProvidersFailed is returned when every provider in a [Chain] fails or
// has an open circuit breaker.
var ErrAllProvidersFailed = errors.New("all providers failed")

// chainEntry pairs a named provider with its dedicated circuit breaker.
type chainEntry struct {
	name     string
	provider llm.Provider
	breaker  *CircuitBreaker
}

// Chain holds the configured LLM providers in preference order, each guarded
// by its own circuit breaker. The question generator walks the chain when a
// provider fails and rotates the starting point between generation attempts.
//
// Chain is immutable after construction and safe for concurrent use.
type Chain struct {
	entries []chainEntry
}

// NewChain creates a Chain from named providers in preference order.
func NewChain(cbCfg CircuitBreakerConfig, providers ...Named) *Chain {
	entries := make([]chainEntry, 0, len(providers))
	for _, np := range providers {
		cfg := cbCfg
		cfg.Name = np.Name
		entries = append(entries, chainEntry{
			name:     np.Name,
			provider: np.Provider,
			breaker:  NewCircuitBreaker(cfg),
		})
	}
	return &Chain{entries: entries}
}

// Named pairs a provider with its configured name.
type Named struct {
	Name     string
	Provider llm.Provider
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int { return len(c.entries) }

// Names returns the provider names in preference order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// IndexOf returns the position of the named provider, or -1.
func (c *Chain) IndexOf(name string) int {
	for i, e := range c.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}

// Healthy reports whether at least one provider's breaker would admit a call.
func (c *Chain) Healthy() bool {
	for _, e := range c.entries {
		if e.breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

// Execute tries fn against each provider, starting at index start and
// wrapping around, until one succeeds. Providers with open breakers are
// skipped. It returns the name of the provider that served the call, or
// [ErrAllProvidersFailed] wrapping the last error when every provider fails.
func (c *Chain) Execute(start int, fn func(name string, p llm.Provider) error) (string, error) {
	if len(c.entries) == 0 {
		return "", fmt.Errorf("%w: no providers configured", ErrAllProvidersFailed)
	}
	if start < 0 {
		start = 0
	}

	var lastErr error
	for i := range c.entries {
		entry := &c.entries[(start+i)%len(c.entries)]
		err := entry.breaker.Execute(func() error {
			return fn(entry.name, entry.provider)
		})
		if err == nil {
			return entry.name, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}
