// Package circuitbreaker stops calling a failing backing store for a while so that
// cache misses fail fast instead of piling up behind timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/onnwee/storefront-cache/internal/logger"
	"github.com/onnwee/storefront-cache/internal/metrics"
)

// ErrCircuitOpen is returned without calling fn while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var log = logger.For("circuitbreaker")

// State is the breaker position. The numeric value is exported as the
// circuit_breaker_state gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config tunes a breaker. Zero values get defaults: 5 failures, 2 successes, 60s.
type Config struct {
	Name             string
	FailureThreshold int           // consecutive failures that open the breaker
	SuccessThreshold int           // consecutive half-open successes that close it
	Timeout          time.Duration // how long to stay open before probing
	// IsFailure decides whether an error counts against the breaker.
	// Nil means every non-nil error does.
	IsFailure func(error) bool
}

// CircuitBreaker guards calls to the backing store. After FailureThreshold consecutive
// failures it rejects calls for Timeout, then admits one probe at a time until
// SuccessThreshold consecutive probes succeed.
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// New creates a closed breaker.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(float64(StateClosed))
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Call runs fn if the breaker admits it. Errors that IsFailure rejects are returned
// unchanged and count as successes.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err != nil && cb.cfg.IsFailure(err))
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) <= cb.cfg.Timeout {
			return false
		}
		cb.setState(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probing {
			return false
		}
		cb.probing = true
	}
	return true
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	switch {
	case failed && cb.state == StateHalfOpen:
		cb.trip()
	case failed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.trip()
		}
	case cb.state == StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.setState(StateClosed)
		}
	default:
		cb.failures = 0
	}
}

// trip must be called with mu held.
func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	metrics.CircuitBreakerTrips.WithLabelValues(cb.cfg.Name).Inc()
	cb.setState(StateOpen)
}

// setState must be called with mu held. Counters restart on every transition.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	metrics.CircuitBreakerState.WithLabelValues(cb.cfg.Name).Set(float64(to))
	log.Info(context.Background(), "circuit breaker state change",
		"breaker", cb.cfg.Name, "from", from.String(), "to", to.String())
}

// State returns the current position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the component label used for metrics.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}
