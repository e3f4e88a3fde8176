package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	"github.com/onnwee/storefront-cache/internal/metrics"
)

// Codec converts typed values to and from stored payloads.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// JSONCodec encodes values as JSON with sonic in its encoding/json compatible mode,
// so payloads written by other JSON encoders stay readable.
type JSONCodec[T any] struct{}

// Marshal implements Codec.
func (JSONCodec[T]) Marshal(v T) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

// Unmarshal implements Codec.
func (JSONCodec[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := sonic.ConfigStd.Unmarshal(data, &v)
	return v, err
}

// GetTyped reads and decodes key. A payload that fails to decode is treated as a miss
// and deleted so the next lookup repopulates it.
func GetTyped[T any](ctx context.Context, s *Store, key string, codec Codec[T]) (T, bool) {
	var zero T
	data, ok := s.Get(ctx, key)
	if !ok {
		return zero, false
	}
	v, err := codec.Unmarshal(data)
	if err != nil {
		metrics.CacheCorruptEntries.Inc()
		log.Warn(ctx, "discarding undecodable cache entry", "op", "get", "key", key, "error", err)
		s.Delete(ctx, key)
		return zero, false
	}
	return v, true
}

// SetTyped encodes v and stores it under key. Encoding failures are logged and the
// value is not cached.
func SetTyped[T any](ctx context.Context, s *Store, key string, v T, ttl time.Duration, codec Codec[T]) {
	data, err := codec.Marshal(v)
	if err != nil {
		log.Warn(ctx, "cache value not encodable", "op", "set", "key", key, "error", err)
		return
	}
	s.Set(ctx, key, data, ttl)
}
