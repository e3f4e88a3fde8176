package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Backend when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend is a cache medium: an in-process map, a cache server, or a test fake.
// Implementations report failures as errors; the Store decides what to do with them.
type Backend interface {
	// Get returns the stored payload, or ErrMiss if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a payload, replacing any existing entry.
	// A ttl <= 0 means the entry does not expire on its own.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes every key matching a glob pattern and reports how many were removed.
	DeleteByPattern(ctx context.Context, pattern string) (int, error)

	// Clear removes every key owned by this backend.
	Clear(ctx context.Context) error

	// Ping is a cheap liveness probe.
	Ping(ctx context.Context) error

	// Stats returns medium statistics.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the medium.
	Close() error

	// Name labels the medium in logs and metrics.
	Name() string
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64 // Total cache hits
	Misses    uint64 // Total cache misses
	KeysAdded uint64 // Total keys added
	Evictions uint64 // Total evictions
	Size      int64  // Approximate size in bytes
	Items     int64  // Current number of items
}
