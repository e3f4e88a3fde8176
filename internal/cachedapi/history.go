package cachedapi

import (
	"context"

	"github.com/onnwee/storefront-cache/internal/cache"
	"github.com/onnwee/storefront-cache/internal/metrics"
)

// Search history lives only in the cache: it is low value, so losing it on eviction or
// flush is acceptable.

// GetSearchHistory returns the user's recent queries, most recent first.
func (s *Service) GetSearchHistory(ctx context.Context, userID string) []string {
	key := cache.KeyForEntity(cache.SearchHistory, userID)
	history, ok := cache.GetTyped(ctx, s.store, key, cache.JSONCodec[[]string]{})
	if !ok {
		metrics.CacheLookups.WithLabelValues(string(cache.SearchHistory), "miss").Inc()
		recordOutcome(ctx, key, false)
		return []string{}
	}
	metrics.CacheLookups.WithLabelValues(string(cache.SearchHistory), "hit").Inc()
	recordOutcome(ctx, key, true)
	return nonNil(history)
}

// SaveSearchHistory records query at the front of the user's history. Repeated queries
// move to the front instead of duplicating; blank queries are ignored.
func (s *Service) SaveSearchHistory(ctx context.Context, userID, query string) {
	normalized := cache.NormalizeQuery(query)
	if userID == "" || normalized == "" {
		return
	}
	key := cache.KeyForEntity(cache.SearchHistory, userID)
	codec := cache.JSONCodec[[]string]{}

	previous, _ := cache.GetTyped(ctx, s.store, key, codec)
	cache.SetTyped(ctx, s.store, key, prependHistory(previous, normalized), s.policy.TTL(cache.SearchHistory), codec)
}

func prependHistory(history []string, query string) []string {
	out := make([]string, 0, SearchHistoryLimit)
	out = append(out, query)
	for _, q := range history {
		if len(out) == SearchHistoryLimit {
			break
		}
		if q == query {
			continue
		}
		out = append(out, q)
	}
	return out
}
