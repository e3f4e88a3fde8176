package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInjected is returned by a FakeBackend operation configured to fail.
var ErrInjected = errors.New("injected cache failure")

// FakeBackend is a map-backed medium for tests. It honours TTLs against an injectable
// clock, counts calls per operation, and can be told to fail or block per operation.
type FakeBackend struct {
	mu    sync.Mutex
	data  map[string]fakeEntry
	now   func() time.Time
	fail  map[string]error
	block map[string]bool
	calls map[string]int
	panic map[string]bool
}

type fakeEntry struct {
	value     []byte
	ttl       time.Duration
	expiresAt time.Time
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		data:  make(map[string]fakeEntry),
		now:   time.Now,
		fail:  make(map[string]error),
		block: make(map[string]bool),
		calls: make(map[string]int),
		panic: make(map[string]bool),
	}
}

// SetClock replaces the clock used for expiry.
func (f *FakeBackend) SetClock(now func() time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// FailOn makes op ("get", "set", "delete", "delete_pattern", "clear", "ping", "stats")
// return err. A nil err clears the failure.
func (f *FakeBackend) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// FailAll makes every operation return ErrInjected.
func (f *FakeBackend) FailAll() {
	for _, op := range []string{"get", "set", "delete", "delete_pattern", "clear", "ping", "stats"} {
		f.FailOn(op, ErrInjected)
	}
}

// BlockOn makes op wait for its context to be done.
func (f *FakeBackend) BlockOn(op string) {
	f.mu.Lock()
	f.block[op] = true
	f.mu.Unlock()
}

// PanicOn makes op panic.
func (f *FakeBackend) PanicOn(op string) {
	f.mu.Lock()
	f.panic[op] = true
	f.mu.Unlock()
}

// Calls returns how many times op was invoked.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Has reports whether key holds a live entry, without counting as a call.
func (f *FakeBackend) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	return ok && !f.expiredLocked(e)
}

// Keys returns the live keys.
func (f *FakeBackend) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k, e := range f.data {
		if !f.expiredLocked(e) {
			keys = append(keys, k)
		}
	}
	return keys
}

// TTL returns the ttl key was last set with.
func (f *FakeBackend) TTL(key string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	return e.ttl, ok
}

func (f *FakeBackend) expiredLocked(e fakeEntry) bool {
	return !e.expiresAt.IsZero() && !f.now().Before(e.expiresAt)
}

func (f *FakeBackend) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.fail[op]
	block := f.block[op]
	shouldPanic := f.panic[op]
	f.mu.Unlock()

	if shouldPanic {
		panic("fake " + op + " panic")
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// Name implements Backend.
func (f *FakeBackend) Name() string { return "fake" }

// Get implements Backend.
func (f *FakeBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.enter(ctx, "get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	if !ok {
		return nil, ErrMiss
	}
	if f.expiredLocked(e) {
		delete(f.data, key)
		return nil, ErrMiss
	}
	return e.value, nil
}

// Set implements Backend.
func (f *FakeBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.enter(ctx, "set"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := fakeEntry{value: append([]byte(nil), value...), ttl: ttl}
	if ttl > 0 {
		e.expiresAt = f.now().Add(ttl)
	}
	f.data[key] = e
	return nil
}

// Delete implements Backend.
func (f *FakeBackend) Delete(ctx context.Context, key string) error {
	if err := f.enter(ctx, "delete"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.data, key)
	f.mu.Unlock()
	return nil
}

// DeleteByPattern implements Backend.
func (f *FakeBackend) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if err := f.enter(ctx, "delete_pattern"); err != nil {
		return 0, err
	}
	p := CompilePattern(pattern)
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.data {
		if p.Match(k) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

// Clear implements Backend.
func (f *FakeBackend) Clear(ctx context.Context) error {
	if err := f.enter(ctx, "clear"); err != nil {
		return err
	}
	f.mu.Lock()
	f.data = make(map[string]fakeEntry)
	f.mu.Unlock()
	return nil
}

// Ping implements Backend.
func (f *FakeBackend) Ping(ctx context.Context) error {
	return f.enter(ctx, "ping")
}

// Stats implements Backend.
func (f *FakeBackend) Stats(ctx context.Context) (Stats, error) {
	if err := f.enter(ctx, "stats"); err != nil {
		return Stats{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var size int64
	for _, e := range f.data {
		size += int64(len(e.value))
	}
	return Stats{Items: int64(len(f.data)), Size: size}, nil
}

// Close implements Backend.
func (f *FakeBackend) Close() error { return nil }
