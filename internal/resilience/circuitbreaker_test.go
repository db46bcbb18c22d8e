package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: err = %v, want errBoom", i+1, err)
		}
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 3})

	failN(t, cb, 2)
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", got)
	}

	failN(t, cb, 1)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", got)
	}

	// Open breaker rejects without running fn.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn was called while the breaker was open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3})

	failN(t, cb, 2)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// The count restarted, so two more failures stay closed.
	failN(t, cb, 2)
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})
	failN(t, cb, 1)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state after reset timeout = %v, want half-open", got)
	}

	// A failing probe re-opens.
	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v", err)
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", got)
	}

	// A successful probe closes.
	time.Sleep(20 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("state after successful probe = %v, want closed", got)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	failN(t, cb, 1)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	cb.Reset()
	if got := cb.State(); got != StateClosed {
		t.Errorf("state after Reset = %v, want closed", got)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute after Reset: %v", err)
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.maxFailures != 3 {
		t.Errorf("maxFailures = %d, want 3", cb.maxFailures)
	}
	if cb.resetTimeout != 60*time.Second {
		t.Errorf("resetTimeout = %v, want 60s", cb.resetTimeout)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
