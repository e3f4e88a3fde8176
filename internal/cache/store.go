package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/storefront-cache/internal/logger"
	"github.com/onnwee/storefront-cache/internal/metrics"
	"github.com/onnwee/storefront-cache/internal/tracing"
)

const defaultOpTimeout = 250 * time.Millisecond

var log = logger.For("cache")

// Store is the best-effort key-value contract the rest of the service talks to.
// It never returns medium errors: failures and timeouts are logged, counted, and
// surfaced as a miss or a no-op. Callers fall back to the backing store.
type Store struct {
	backend   Backend
	opTimeout time.Duration
	healthy   atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithOpTimeout bounds every medium call.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// NewStore wraps a medium. The store starts healthy; Open or HealthCheck update that.
func NewStore(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.healthy.Store(true)
	return s
}

// Backend returns the wrapped medium.
func (s *Store) Backend() Backend { return s.backend }

// Open probes the medium once. An unreachable medium is not fatal: the store
// starts degraded and recovers on a later health check.
func (s *Store) Open(ctx context.Context) {
	if s.HealthCheck(ctx) {
		log.Info(ctx, "cache store opened", "backend", s.backend.Name())
		return
	}
	log.Warn(ctx, "cache store opened degraded", "backend", s.backend.Name())
}

// Close releases the medium.
func (s *Store) Close() error {
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("close %s cache: %w", s.backend.Name(), err)
	}
	return nil
}

// Healthy reports the result of the last health check.
func (s *Store) Healthy() bool { return s.healthy.Load() }

// Get returns the payload stored under key. Absent, expired, failed, and timed-out
// reads are all reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if !s.Healthy() {
		metrics.CacheOperations.WithLabelValues("get", "skipped").Inc()
		return nil, false
	}
	var data []byte
	err := s.do(ctx, "get", key, func(ctx context.Context) error {
		var err error
		data, err = s.backend.Get(ctx, key)
		return err
	})
	switch {
	case err == nil:
		metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
		return data, true
	case errors.Is(err, ErrMiss):
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
	default:
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		log.Warn(ctx, "cache get failed", "op", "get", "key", key, "error", err)
	}
	return nil, false
}

// Set stores value under key, replacing any existing entry. ttl <= 0 means no expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !s.Healthy() {
		metrics.CacheOperations.WithLabelValues("set", "skipped").Inc()
		return
	}
	err := s.do(ctx, "set", key, func(ctx context.Context) error {
		return s.backend.Set(ctx, key, value, ttl)
	})
	s.record(ctx, "set", key, err)
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) {
	err := s.do(ctx, "delete", key, func(ctx context.Context) error {
		return s.backend.Delete(ctx, key)
	})
	s.record(ctx, "delete", key, err)
}

// DeleteByPattern removes every key matching a glob pattern and returns how many
// were removed. The sweep is best-effort: keys written concurrently may survive it.
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) int {
	var n int
	err := s.do(ctx, "delete_pattern", pattern, func(ctx context.Context) error {
		var err error
		n, err = s.backend.DeleteByPattern(ctx, pattern)
		return err
	})
	s.record(ctx, "delete_pattern", pattern, err)
	return n
}

// Clear removes every entry owned by the medium.
func (s *Store) Clear(ctx context.Context) {
	err := s.do(ctx, "clear", "*", func(ctx context.Context) error {
		return s.backend.Clear(ctx)
	})
	s.record(ctx, "clear", "*", err)
}

// HealthCheck pings the medium and remembers the result. It never panics.
func (s *Store) HealthCheck(ctx context.Context) bool {
	err := s.do(ctx, "ping", "", s.backend.Ping)
	ok := err == nil
	was := s.healthy.Swap(ok)

	if ok {
		metrics.CacheOperations.WithLabelValues("ping", "ok").Inc()
		metrics.CacheHealthy.Set(1)
		if !was {
			log.Info(ctx, "cache medium recovered", "backend", s.backend.Name())
		}
		return true
	}
	metrics.CacheOperations.WithLabelValues("ping", "error").Inc()
	metrics.CacheHealthy.Set(0)
	if was {
		log.Error(ctx, "cache medium unhealthy, bypassing cache", "backend", s.backend.Name(), "error", err)
	}
	return false
}

// Monitor runs HealthCheck every interval until ctx is done.
func (s *Store) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.HealthCheck(ctx)
		}
	}
}

// Stats returns medium statistics; a failing medium yields zero stats and the error.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.do(ctx, "stats", "", func(ctx context.Context) error {
		var err error
		st, err = s.backend.Stats(ctx)
		return err
	})
	return st, err
}

// Sample implements metrics.CacheSampler.
func (s *Store) Sample(ctx context.Context) metrics.CacheSnapshot {
	st, err := s.Stats(ctx)
	if err != nil {
		metrics.MetricsCollectionErrors.WithLabelValues("cache").Inc()
	}
	return metrics.CacheSnapshot{
		Items:     st.Items,
		SizeBytes: st.Size,
		Evictions: st.Evictions,
		Healthy:   s.Healthy(),
	}
}

// do runs one medium call under the operation timeout inside a span. A medium that
// ignores the deadline is abandoned; its panics are converted into errors.
func (s *Store) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "cache."+op,
		trace.WithAttributes(
			attribute.String("cache.backend", s.backend.Name()),
			attribute.String("cache.key", key),
		))
	defer span.End()
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("cache %s panicked: %v", op, r)
			}
		}()
		done <- fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("cache %s: %w", op, ctx.Err())
	}

	metrics.CacheOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrMiss) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Store) record(ctx context.Context, op, key string, err error) {
	if err == nil {
		metrics.CacheOperations.WithLabelValues(op, "ok").Inc()
		return
	}
	metrics.CacheOperations.WithLabelValues(op, "error").Inc()
	log.Warn(ctx, "cache "+op+" failed", "op", op, "key", key, "error", err)
}
