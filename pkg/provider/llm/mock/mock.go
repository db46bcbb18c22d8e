// Package mock provides an in-memory llm.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/quizzardhq/quizzard/pkg/provider/llm"
)

// Provider is a configurable llm.Provider for tests. Responses are returned
// in order; once exhausted, the last response repeats. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Responses is the sequence of contents to return from Complete.
	Responses []string

	// Err, when non-nil, is returned by every Complete call.
	Err error

	// Calls records every request passed to Complete.
	Calls []llm.CompletionRequest

	next int
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	idx := p.next
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	p.next++
	return &llm.CompletionResponse{Content: p.Responses[idx]}, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4_096}
}

// CallCount returns the number of Complete calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
