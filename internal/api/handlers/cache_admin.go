package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/onnwee/storefront-cache/internal/apierr"
	"github.com/onnwee/storefront-cache/internal/cache"
)

// Invalidator drops cached entries after writes to the catalog.
type Invalidator interface {
	InvalidateProductCache(ctx context.Context, id string)
	InvalidateUserCache(ctx context.Context, userID string)
	InvalidateAll(ctx context.Context)
}

// StatsSource reports cache medium statistics.
type StatsSource interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Healthy() bool
}

// CacheAdminHandler handles cache administration endpoints.
type CacheAdminHandler struct {
	inv   Invalidator
	stats StatsSource
}

// NewCacheAdminHandler creates a new cache admin handler.
func NewCacheAdminHandler(inv Invalidator, stats StatsSource) *CacheAdminHandler {
	return &CacheAdminHandler{inv: inv, stats: stats}
}

// InvalidateProducts drops product listings, searches and, when id is given, that product.
// POST /api/admin/cache/products/invalidate[?id=]
func (h *CacheAdminHandler) InvalidateProducts(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	h.inv.InvalidateProductCache(r.Context(), id)
	log.Info(r.Context(), "product cache invalidated", "product_id", id)
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ok",
		"scope":  "product",
		"id":     id,
	})
}

// InvalidateUser drops a user's session, wishlist and search history.
// POST /api/admin/cache/users/{id}/invalidate
func (h *CacheAdminHandler) InvalidateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	h.inv.InvalidateUserCache(r.Context(), id)
	log.Info(r.Context(), "user cache invalidated", "user_id", id)
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ok",
		"scope":  "user",
		"id":     id,
	})
}

// Flush clears every entry the application owns.
// POST /api/admin/cache/flush
func (h *CacheAdminHandler) Flush(w http.ResponseWriter, r *http.Request) {
	h.inv.InvalidateAll(r.Context())
	log.Warn(r.Context(), "cache flushed")
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Cache invalidated successfully",
	})
}

// GetCacheStats returns current cache statistics.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		log.Warn(r.Context(), "cache stats unavailable", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("Cache statistics unavailable"))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"healthy":   h.stats.Healthy(),
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"keysAdded": stats.KeysAdded,
		"evictions": stats.Evictions,
		"sizeBytes": stats.Size,
		"items":     stats.Items,
	})
}
