package metrics

import (
	"context"
	"sync"
	"time"
)

// CacheSnapshot is a point-in-time view of the cache medium.
type CacheSnapshot struct {
	Items     int64
	SizeBytes int64
	Evictions uint64
	Healthy   bool
}

// CacheSampler is implemented by the cache store.
type CacheSampler interface {
	Sample(ctx context.Context) CacheSnapshot
}

// Collector periodically samples the cache and updates Prometheus gauges
type Collector struct {
	sampler  CacheSampler
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(sampler CacheSampler, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		sampler:  sampler,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop; it blocks until Stop or ctx cancellation.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	c.Collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Collect takes one sample.
func (c *Collector) Collect(ctx context.Context) {
	if c.sampler == nil {
		MetricsCollectionErrors.WithLabelValues("cache").Inc()
		return
	}
	snap := c.sampler.Sample(ctx)
	CacheItems.Set(float64(snap.Items))
	CacheSizeBytes.Set(float64(snap.SizeBytes))
	CacheEvictions.Set(float64(snap.Evictions))
	if snap.Healthy {
		CacheHealthy.Set(1)
	} else {
		CacheHealthy.Set(0)
	}
}
