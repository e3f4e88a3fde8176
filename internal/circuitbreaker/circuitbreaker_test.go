package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func newTestBreaker() *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})
}

func TestCircuitBreakerStateClosed(t *testing.T) {
	cb := newTestBreaker()

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.State())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errBackend }); err != errBackend {
			t.Errorf("Expected backend error, got: %v", err)
		}
	}

	if cb.State() != StateOpen {
		t.Errorf("Expected state to be Open, got %v", cb.State())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
	if called {
		t.Error("fn must not run while the circuit is open")
	}
}

func TestCircuitBreakerHalfOpenThenClosed(t *testing.T) {
	cb := newTestBreaker()
	now := time.Now()
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBackend })
	}

	now = now.Add(60 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected success in half-open state, got: %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("Expected Half-Open after first probe, got %v", cb.State())
	}
	cb.Call(func() error { return nil })
	if cb.State() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.State())
	}
}

func TestCircuitBreakerReopensOnFailureInHalfOpen(t *testing.T) {
	cb := newTestBreaker()
	now := time.Now()
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBackend })
	}
	now = now.Add(60 * time.Millisecond)

	cb.Call(func() error { return errBackend })

	if cb.State() != StateOpen {
		t.Errorf("Expected state to be Open after failure in half-open, got %v", cb.State())
	}
}

func TestCircuitBreakerIgnoresNonFailures(t *testing.T) {
	errNotFound := errors.New("not found")
	cb := New(Config{
		Name:             "test-filter",
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errNotFound) },
	})

	for i := 0; i < 5; i++ {
		if err := cb.Call(func() error { return errNotFound }); err != errNotFound {
			t.Fatalf("expected errNotFound passthrough, got %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("filtered errors must not trip the breaker, state=%v", cb.State())
	}
}

func TestStateString(t *testing.T) {
	if StateOpen.String() != "open" || StateHalfOpen.String() != "half-open" || StateClosed.String() != "closed" {
		t.Error("unexpected state names")
	}
}

func TestCircuitBreakerHalfOpenAdmitsOneProbe(t *testing.T) {
	cb := newTestBreaker()
	now := time.Now()
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBackend })
	}
	now = now.Add(60 * time.Millisecond)

	inProbe := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Call(func() error {
			close(inProbe)
			<-release
			return nil
		})
	}()
	<-inProbe

	if err := cb.Call(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("second concurrent probe should be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("probe returned %v", err)
	}
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("next probe should be admitted after the first finished, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected Closed after two successful probes, got %v", cb.State())
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := newTestBreaker()
	cb.Call(func() error { return errBackend })
	cb.Call(func() error { return errBackend })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return errBackend })
	cb.Call(func() error { return errBackend })

	if cb.State() != StateClosed {
		t.Errorf("failures are counted consecutively, expected Closed, got %v", cb.State())
	}
}
