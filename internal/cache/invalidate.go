package cache

import (
	"context"

	"github.com/onnwee/storefront-cache/internal/metrics"
)

// Invalidator removes cache entries after writes to the backing store.
// Every method is idempotent and best-effort; failures are logged by the Store.
type Invalidator struct {
	store *Store
}

// NewInvalidator creates an Invalidator over store.
func NewInvalidator(store *Store) *Invalidator {
	return &Invalidator{store: store}
}

// InvalidateProduct drops every entry that may reflect product id: the listing, the
// product itself, all search results, and all by-name entries. An empty id skips the
// per-product key but still sweeps the rest.
func (inv *Invalidator) InvalidateProduct(ctx context.Context, id string) {
	metrics.CacheInvalidations.WithLabelValues("product").Inc()

	inv.store.Delete(ctx, KeyForAll(ProductsAll))
	if id != "" {
		inv.store.Delete(ctx, KeyForEntity(ProductByID, id))
	}
	searched := inv.store.DeleteByPattern(ctx, SearchPattern(ProductSearch))
	named := inv.store.DeleteByPattern(ctx, NamePattern())

	log.Debug(ctx, "product cache invalidated", "product_id", id,
		"search_entries", searched, "name_entries", named)
}

// InvalidateUser drops the session, wishlist, and search history of userID.
func (inv *Invalidator) InvalidateUser(ctx context.Context, userID string) {
	metrics.CacheInvalidations.WithLabelValues("user").Inc()
	if userID == "" {
		return
	}
	inv.store.Delete(ctx, KeyForEntity(UserSession, userID))
	inv.store.Delete(ctx, KeyForEntity(UserWishlist, userID))
	inv.store.Delete(ctx, KeyForEntity(SearchHistory, userID))

	log.Debug(ctx, "user cache invalidated", "user_id", userID)
}

// InvalidateAll clears the medium.
func (inv *Invalidator) InvalidateAll(ctx context.Context) {
	metrics.CacheInvalidations.WithLabelValues("all").Inc()
	inv.store.Clear(ctx)
	log.Info(ctx, "cache flushed")
}
