// Package retry runs backing-store calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how many times to try and how long to wait between tries.
type Policy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64 // randomization factor in [0,1)
}

// Named presets, slowest-to-give-up last.
var presets = map[string]Policy{
	"quick":        {MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second, Multiplier: 1.5, Jitter: 0.1},
	"standard":     {MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Jitter: 0.1},
	"aggressive":   {MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Multiplier: 2, Jitter: 0.1},
	"conservative": {MaxAttempts: 2, BaseDelay: 2 * time.Second, MaxDelay: 5 * time.Second, Multiplier: 1.5, Jitter: 0.1},
}

// Standard is the default policy.
var Standard = presets["standard"]

// Preset returns a named policy; unknown names fall back to Standard.
func Preset(name string) (Policy, bool) {
	p, ok := presets[name]
	if !ok {
		return Standard, false
	}
	return p, true
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	return b
}

// Notify is called before each wait.
type Notify func(attempt int, err error, wait time.Duration)

// Do calls fn until it succeeds, returns an error retryable rejects, the policy runs
// out of attempts, or ctx is done. Cancellation is never retried. A deadline error is
// retried only while ctx itself is still live. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, notify Notify, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		// A deadline from fn's own per-attempt bound is retryable; the caller's is not.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return v, backoff.Permanent(err)
		}
		if retryable != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(attempts),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}))
	}
	return backoff.Retry(ctx, op, opts...)
}
