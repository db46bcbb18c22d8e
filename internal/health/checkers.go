package health

import (
	"context"
	"errors"

	"github.com/quizzardhq/quizzard/internal/resilience"
)

// Pinger is the slice of a database pool the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a Checker probing database connectivity.
func Database(p Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return p.Ping(ctx)
		},
	}
}

// Providers returns a Checker that fails when every LLM provider in the
// chain has an open circuit breaker, meaning quiz generation cannot proceed.
func Providers(chain *resilience.Chain) Checker {
	return Checker{
		Name: "providers",
		Check: func(_ context.Context) error {
			if chain.Len() == 0 {
				return errors.New("no providers configured")
			}
			if !chain.Healthy() {
				return errors.New("all provider circuits open")
			}
			return nil
		},
	}
}
