// Package cachedapi serves storefront reads through the cache, falling back to the
// catalog on a miss.
package cachedapi

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/onnwee/storefront-cache/internal/cache"
	"github.com/onnwee/storefront-cache/internal/catalog"
	"github.com/onnwee/storefront-cache/internal/errorreporting"
	"github.com/onnwee/storefront-cache/internal/logger"
	"github.com/onnwee/storefront-cache/internal/metrics"
	"github.com/onnwee/storefront-cache/internal/tracing"
)

// SearchHistoryLimit caps the number of remembered queries per user.
const SearchHistoryLimit = 10

var log = logger.For("cachedapi")

// Service answers storefront reads. Every method follows the same read-through
// algorithm: derive the key, try the cache, on a miss ask the catalog, cache the
// answer (including not-found) with the category TTL, and return it. Catalog errors
// are logged and turned into an empty result; they are never cached.
//
// Concurrent misses for the same key each reach the catalog; the last write wins.
type Service struct {
	store       *cache.Store
	catalog     catalog.Backend
	invalidator *cache.Invalidator
	policy      cache.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy overrides the TTL table.
func WithPolicy(p cache.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// NewService creates a Service over an opened store and a catalog backend.
func NewService(store *cache.Store, backend catalog.Backend, opts ...Option) *Service {
	s := &Service{
		store:       store,
		catalog:     backend,
		invalidator: cache.NewInvalidator(store),
		policy:      cache.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Export every lookup series at zero so rates work before the first request.
	for _, cat := range cache.Categories {
		for _, result := range lookupResults {
			metrics.CacheLookups.WithLabelValues(string(cat), result)
		}
	}
	return s
}

// Store returns the underlying cache store.
func (s *Service) Store() *cache.Store { return s.store }

// Ping checks that the catalog is reachable.
func (s *Service) Ping(ctx context.Context) error { return s.catalog.Ping(ctx) }

var lookupResults = []string{"hit", "miss", "fallback"}

// readThrough is the single lookup algorithm shared by every category.
func readThrough[T any](ctx context.Context, s *Service, method string, cat cache.Category, key string, fetch func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartSpan(ctx, "cachedapi."+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.category", string(cat)),
	)
	codec := cache.JSONCodec[T]{}

	if v, ok := cache.GetTyped(ctx, s.store, key, codec); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		metrics.CacheLookups.WithLabelValues(string(cat), "hit").Inc()
		recordOutcome(ctx, key, true)
		return v, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))
	recordOutcome(ctx, key, false)

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		metrics.CacheLookups.WithLabelValues(string(cat), "fallback").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "backing store lookup failed", "op", method, "category", string(cat), "key", key, "error", err)
		if !errors.Is(err, context.Canceled) {
			errorreporting.CaptureErrorWithContext(err,
				map[string]string{"component": "cachedapi", "operation": method, "category": string(cat)},
				map[string]interface{}{"key": key})
		}
		return zero, err
	}

	metrics.CacheLookups.WithLabelValues(string(cat), "miss").Inc()
	cache.SetTyped(ctx, s.store, key, v, s.policy.TTL(cat), codec)
	return v, nil
}

// entity adapts a single-entity fetch so that not-found becomes a cacheable nil.
func entity[T any](fetch func(context.Context) (*T, error)) func(context.Context) (*T, error) {
	return func(ctx context.Context) (*T, error) {
		v, err := fetch(ctx)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil
		}
		return v, err
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// GetAllProducts returns every product, or an empty slice when the catalog fails.
func (s *Service) GetAllProducts(ctx context.Context) []catalog.Product {
	products, _ := readThrough(ctx, s, "GetAllProducts", cache.ProductsAll,
		cache.KeyForAll(cache.ProductsAll), s.catalog.ListProducts)
	return nonNil(products)
}

// GetProductByID returns the product, or nil when it does not exist or the catalog fails.
func (s *Service) GetProductByID(ctx context.Context, id string) *catalog.Product {
	p, _ := readThrough(ctx, s, "GetProductByID", cache.ProductByID,
		cache.KeyForEntity(cache.ProductByID, id),
		entity(func(ctx context.Context) (*catalog.Product, error) {
			return s.catalog.ProductByID(ctx, id)
		}))
	return p
}

// GetProductByName looks a product up by name or URL slug.
func (s *Service) GetProductByName(ctx context.Context, name string) *catalog.Product {
	normalized := cache.NormalizeName(name)
	p, _ := readThrough(ctx, s, "GetProductByName", cache.ProductByName,
		cache.KeyForName(cache.ProductByName, name),
		entity(func(ctx context.Context) (*catalog.Product, error) {
			return s.catalog.ProductByName(ctx, normalized)
		}))
	return p
}

// SearchProducts returns products whose name contains query. Queries differing only in
// case or spacing share one cache entry.
func (s *Service) SearchProducts(ctx context.Context, query string) []catalog.Product {
	normalized := cache.NormalizeQuery(query)
	products, _ := readThrough(ctx, s, "SearchProducts", cache.ProductSearch,
		cache.KeyForSearch(cache.ProductSearch, query),
		func(ctx context.Context) ([]catalog.Product, error) {
			return s.catalog.SearchProducts(ctx, normalized)
		})
	return nonNil(products)
}

// GetUserSession returns the user's session, or nil.
func (s *Service) GetUserSession(ctx context.Context, userID string) *catalog.UserSession {
	sess, _ := readThrough(ctx, s, "GetUserSession", cache.UserSession,
		cache.KeyForEntity(cache.UserSession, userID),
		entity(func(ctx context.Context) (*catalog.UserSession, error) {
			return s.catalog.UserSession(ctx, userID)
		}))
	return sess
}

// GetUserWishlist returns the user's wishlist, newest first.
func (s *Service) GetUserWishlist(ctx context.Context, userID string) []catalog.WishlistItem {
	items, _ := readThrough(ctx, s, "GetUserWishlist", cache.UserWishlist,
		cache.KeyForEntity(cache.UserWishlist, userID),
		func(ctx context.Context) ([]catalog.WishlistItem, error) {
			return s.catalog.UserWishlist(ctx, userID)
		})
	return nonNil(items)
}

// InvalidateProductCache drops every cached entry that may reflect product id.
func (s *Service) InvalidateProductCache(ctx context.Context, id string) {
	s.invalidator.InvalidateProduct(ctx, id)
}

// InvalidateUserCache drops every cached entry belonging to userID.
func (s *Service) InvalidateUserCache(ctx context.Context, userID string) {
	s.invalidator.InvalidateUser(ctx, userID)
}

// InvalidateAll flushes the cache.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.invalidator.InvalidateAll(ctx)
}
