package cache

import "time"

// DefaultTTL applies to categories missing from a policy.
const DefaultTTL = 300 * time.Second

// Policy maps a category to the TTL recorded on its entries at set time.
type Policy map[Category]time.Duration

// DefaultPolicy returns the freshness table used in production.
func DefaultPolicy() Policy {
	return Policy{
		ProductsAll:   300 * time.Second,   // listing changes infrequently
		ProductByID:   600 * time.Second,   // detail pages tolerate more staleness
		ProductByName: 600 * time.Second,   // same record as by-id
		ProductSearch: 180 * time.Second,   // search should feel fresher
		UserSession:   3600 * time.Second,  // rarely changes within an hour
		UserWishlist:  300 * time.Second,   // user-specific, moderate freshness
		SearchHistory: 86400 * time.Second, // low value, rarely invalidated
	}
}

// TTL returns the TTL for cat.
func (p Policy) TTL(cat Category) time.Duration {
	if ttl, ok := p[cat]; ok && ttl > 0 {
		return ttl
	}
	return DefaultTTL
}
