package metrics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSampler struct {
	calls atomic.Int32
	snap  CacheSnapshot
}

func (f *fakeSampler) Sample(ctx context.Context) CacheSnapshot {
	f.calls.Add(1)
	return f.snap
}

func TestCollectorCollectSetsGauges(t *testing.T) {
	s := &fakeSampler{snap: CacheSnapshot{Items: 12, SizeBytes: 2048, Evictions: 3, Healthy: true}}
	c := NewCollector(s, time.Second)

	c.Collect(context.Background())

	if got := testutil.ToFloat64(CacheItems); got != 12 {
		t.Errorf("expected cache_items 12, got %v", got)
	}
	if got := testutil.ToFloat64(CacheSizeBytes); got != 2048 {
		t.Errorf("expected cache_size_bytes 2048, got %v", got)
	}
	if got := testutil.ToFloat64(CacheHealthy); got != 1 {
		t.Errorf("expected cache_healthy 1, got %v", got)
	}

	s.snap.Healthy = false
	c.Collect(context.Background())
	if got := testutil.ToFloat64(CacheHealthy); got != 0 {
		t.Errorf("expected cache_healthy 0, got %v", got)
	}
}

func TestCollectorStop(t *testing.T) {
	s := &fakeSampler{}
	c := NewCollector(s, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	c.Stop()
	c.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	if s.calls.Load() < 2 {
		t.Errorf("expected at least 2 samples, got %d", s.calls.Load())
	}
}

func TestCollectorContextCancellation(t *testing.T) {
	c := NewCollector(&fakeSampler{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector ignored context cancellation")
	}
}
