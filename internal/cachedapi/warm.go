package cachedapi

import (
	"context"
	"fmt"

	"github.com/onnwee/storefront-cache/internal/cache"
	"github.com/onnwee/storefront-cache/internal/catalog"
	"github.com/onnwee/storefront-cache/internal/tracing"
)

// Warm reads the full product list from the catalog once and writes the collection
// entry plus one by-id and one by-name entry per product, so the first requests after
// a deploy hit. It returns the number of products written.
func (s *Service) Warm(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "cachedapi.Warm")
	defer span.End()

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("list products: %w", err)
	}
	products = nonNil(products)

	cache.SetTyped(ctx, s.store, cache.KeyForAll(cache.ProductsAll), products,
		s.policy.TTL(cache.ProductsAll), cache.JSONCodec[[]catalog.Product]{})

	entityCodec := cache.JSONCodec[*catalog.Product]{}
	for i := range products {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		p := &products[i]
		cache.SetTyped(ctx, s.store, cache.KeyForEntity(cache.ProductByID, p.ID), p,
			s.policy.TTL(cache.ProductByID), entityCodec)
		if p.Name != "" {
			cache.SetTyped(ctx, s.store, cache.KeyForName(cache.ProductByName, p.Name), p,
				s.policy.TTL(cache.ProductByName), entityCodec)
		}
	}
	log.Info(ctx, "cache warmed", "products", len(products))
	return len(products), nil
}
