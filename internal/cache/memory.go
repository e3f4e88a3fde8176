package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

var (
	errRejected = errors.New("ristretto rejected entry")
	errClosed   = errors.New("cache closed")
)

// MemoryBackend is a size-bounded in-process medium backed by ristretto.
//
// Expiry is checked on read against an absolute deadline so an entry is never served
// past its TTL. Ristretto cannot enumerate its keys, so a secondary index of live
// keys, bucketed by namespace, serves DeleteByPattern. Keys evicted by ristretto
// linger in the index until a read or sweep notices they are gone. Index entries carry
// the generation of the write that added them; a reader only prunes the generation it
// observed, so it never unindexes a concurrent Set.
type MemoryBackend struct {
	cache *ristretto.Cache
	now   func() time.Time
	gen   atomic.Uint64

	mu     sync.Mutex
	index  map[string]map[string]uint64
	closed bool
}

// memoryItem wraps the data with expiration time.
type memoryItem struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
	gen       uint64
}

func (it *memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// NewMemoryBackend creates a ristretto-backed medium.
// maxSizeMB bounds total payload bytes; maxEntries sizes the admission counters.
func NewMemoryBackend(maxSizeMB int64, maxEntries int64) (*MemoryBackend, error) {
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}
	maxCost := maxSizeMB * 1024 * 1024
	if maxCost <= 0 {
		maxCost = 1024 * 1024
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64, // Number of keys per Get buffer
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryBackend{
		cache: c,
		now:   time.Now,
		index: make(map[string]map[string]uint64),
	}, nil
}

// SetClock replaces the clock used for expiry checks.
func (m *MemoryBackend) SetClock(now func() time.Time) {
	m.now = now
}

// Name implements Backend.
func (m *MemoryBackend) Name() string { return "memory" }

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	if m.isClosed() {
		return nil, errClosed
	}
	seen := m.indexed(key)
	val, found := m.cache.Get(key)
	item, ok := val.(*memoryItem)
	if !found || !ok {
		m.unindexIf(key, seen)
		return nil, ErrMiss
	}

	// Ristretto drops the entry at its own TTL; deleting here could remove a newer Set.
	if item.expired(m.now()) {
		m.unindexIf(key, item.gen)
		return nil, ErrMiss
	}

	return item.data, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.isClosed() {
		return errClosed
	}

	item := &memoryItem{data: value, gen: m.gen.Add(1)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	} else {
		ttl = 0
	}

	// Cost is the size of the data in bytes
	cost := int64(len(value))
	if cost < 1 {
		cost = 1
	}

	if !m.cache.SetWithTTL(key, item, cost, ttl) {
		return errRejected
	}
	// Wait for value to pass through buffers so the next Get observes it
	m.cache.Wait()
	m.addIndex(key, item.gen)
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	if m.isClosed() {
		return errClosed
	}
	seen := m.indexed(key)
	m.cache.Del(key)
	m.unindexIf(key, seen)
	return nil
}

// DeleteByPattern implements Backend using the secondary index.
func (m *MemoryBackend) DeleteByPattern(_ context.Context, glob string) (int, error) {
	if m.isClosed() {
		return 0, errClosed
	}
	p := CompilePattern(glob)

	m.mu.Lock()
	var matched []string
	collect := func(bucket map[string]uint64) {
		for key := range bucket {
			if p.Match(key) {
				matched = append(matched, key)
			}
		}
	}
	if ns, ok := p.Namespace(); ok {
		collect(m.index[ns])
	} else {
		for _, bucket := range m.index {
			collect(bucket)
		}
	}
	for _, key := range matched {
		m.removeLocked(key)
	}
	m.mu.Unlock()

	for _, key := range matched {
		m.cache.Del(key)
	}
	return len(matched), nil
}

// Clear implements Backend.
func (m *MemoryBackend) Clear(_ context.Context) error {
	if m.isClosed() {
		return errClosed
	}
	m.cache.Clear()
	m.mu.Lock()
	m.index = make(map[string]map[string]uint64)
	m.mu.Unlock()
	return nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(_ context.Context) error {
	if m.isClosed() {
		return errClosed
	}
	return nil
}

// Stats implements Backend.
func (m *MemoryBackend) Stats(_ context.Context) (Stats, error) {
	metrics := m.cache.Metrics

	m.mu.Lock()
	items := 0
	for _, bucket := range m.index {
		items += len(bucket)
	}
	m.mu.Unlock()

	return Stats{
		Hits:      metrics.Hits(),
		Misses:    metrics.Misses(),
		KeysAdded: metrics.KeysAdded(),
		Evictions: metrics.KeysEvicted(),
		Size:      int64(metrics.CostAdded() - metrics.CostEvicted()), // Approximate current size
		Items:     int64(items),
	}, nil
}

// Close closes the cache and releases resources.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cache.Close()
	return nil
}

func (m *MemoryBackend) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MemoryBackend) addIndex(key string, gen uint64) {
	ns := namespaceOf(key)
	m.mu.Lock()
	bucket, ok := m.index[ns]
	if !ok {
		bucket = make(map[string]uint64)
		m.index[ns] = bucket
	}
	if gen > bucket[key] {
		bucket[key] = gen
	}
	m.mu.Unlock()
}

// indexed returns the generation indexed for key, or 0.
func (m *MemoryBackend) indexed(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index[namespaceOf(key)][key]
}

// unindexIf removes key only while the index still holds generation gen.
func (m *MemoryBackend) unindexIf(key string, gen uint64) {
	if gen == 0 {
		return
	}
	m.mu.Lock()
	if m.index[namespaceOf(key)][key] == gen {
		m.removeLocked(key)
	}
	m.mu.Unlock()
}

func (m *MemoryBackend) removeLocked(key string) {
	ns := namespaceOf(key)
	bucket, ok := m.index[ns]
	if !ok {
		return
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(m.index, ns)
	}
}
