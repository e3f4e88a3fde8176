package catalog

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/storefront-cache/internal/circuitbreaker"
	"github.com/onnwee/storefront-cache/internal/logger"
	"github.com/onnwee/storefront-cache/internal/metrics"
	"github.com/onnwee/storefront-cache/internal/retry"
	"github.com/onnwee/storefront-cache/internal/tracing"
)

var log = logger.For("catalog")

// ResilientConfig tunes the Resilient decorator.
type ResilientConfig struct {
	Retry   retry.Policy
	Timeout time.Duration // per attempt; zero means no extra bound
	Breaker circuitbreaker.Config
}

// Resilient wraps a Backend with a per-attempt timeout, retries with exponential
// backoff, and a circuit breaker. Not-found results are neither retried nor counted
// as breaker failures.
type Resilient struct {
	next    Backend
	policy  retry.Policy
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewResilient decorates next.
func NewResilient(next Backend, cfg ResilientConfig) *Resilient {
	bcfg := cfg.Breaker
	if bcfg.Name == "" {
		bcfg.Name = "catalog"
	}
	bcfg.IsFailure = countsAgainstBreaker
	return &Resilient{
		next:    next,
		policy:  cfg.Retry,
		timeout: cfg.Timeout,
		breaker: circuitbreaker.New(bcfg),
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (r *Resilient) Breaker() *circuitbreaker.CircuitBreaker { return r.breaker }

func countsAgainstBreaker(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return false
	case IsPermanentPostgresError(err):
		return false
	}
	return true
}

// call runs one backing-store operation through the breaker and retry policy.
func call[T any](ctx context.Context, r *Resilient, op string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	notify := func(attempt int, err error, wait time.Duration) {
		metrics.BackingStoreRetries.WithLabelValues(op).Inc()
		log.Warn(ctx, "backing store call failed, retrying",
			"op", op, "attempt", attempt, "wait", wait, "error", err)
	}

	v, err := retry.Do(ctx, r.policy, retryable, notify, func(ctx context.Context) (T, error) {
		var out T
		err := r.breaker.Call(func() error {
			attemptCtx := ctx
			if r.timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}
			var err error
			out, err = fn(attemptCtx)
			return err
		})
		return out, err
	})

	metrics.BackingStoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.BackingStoreRequests.WithLabelValues(op, "success").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.BackingStoreRequests.WithLabelValues(op, "not_found").Inc()
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.BackingStoreRequests.WithLabelValues(op, "circuit_open").Inc()
		span.SetStatus(codes.Error, err.Error())
	default:
		metrics.BackingStoreRequests.WithLabelValues(op, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// ListProducts implements Backend.
func (r *Resilient) ListProducts(ctx context.Context) ([]Product, error) {
	return call(ctx, r, "list_products", nil, r.next.ListProducts)
}

// ProductByID implements Backend.
func (r *Resilient) ProductByID(ctx context.Context, id string) (*Product, error) {
	return call(ctx, r, "product_by_id", []attribute.KeyValue{attribute.String("product.id", id)},
		func(ctx context.Context) (*Product, error) { return r.next.ProductByID(ctx, id) })
}

// ProductByName implements Backend.
func (r *Resilient) ProductByName(ctx context.Context, name string) (*Product, error) {
	return call(ctx, r, "product_by_name", []attribute.KeyValue{attribute.String("product.name", name)},
		func(ctx context.Context) (*Product, error) { return r.next.ProductByName(ctx, name) })
}

// SearchProducts implements Backend.
func (r *Resilient) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	return call(ctx, r, "search_products", []attribute.KeyValue{attribute.String("search.query", query)},
		func(ctx context.Context) ([]Product, error) { return r.next.SearchProducts(ctx, query) })
}

// UserSession implements Backend.
func (r *Resilient) UserSession(ctx context.Context, userID string) (*UserSession, error) {
	return call(ctx, r, "user_session", nil,
		func(ctx context.Context) (*UserSession, error) { return r.next.UserSession(ctx, userID) })
}

// UserWishlist implements Backend.
func (r *Resilient) UserWishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	return call(ctx, r, "user_wishlist", nil,
		func(ctx context.Context) ([]WishlistItem, error) { return r.next.UserWishlist(ctx, userID) })
}

// Ping implements Backend. Pings bypass retries and the breaker.
func (r *Resilient) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// Close implements Backend.
func (r *Resilient) Close() error {
	return r.next.Close()
}
