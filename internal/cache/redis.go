package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisBackend.
type RedisConfig struct {
	Address    string
	Password   string
	DB         int
	KeyPrefix  string // prepended to every key, e.g. "storefront:"
	MaxRetries int
	// ScanCount is the COUNT hint for SCAN during pattern sweeps.
	ScanCount int64
}

// RedisBackend is a cache medium backed by a Redis server, shareable by several processes.
type RedisBackend struct {
	client    *redis.Client
	prefix    string
	scanCount int64
}

// NewRedisBackend creates a Redis medium. Address is either host:port or a
// redis:// / rediss:// URL. It does not dial; connectivity is established lazily and
// verified through Ping.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	opts := &redis.Options{Addr: cfg.Address}
	if strings.Contains(cfg.Address, "://") {
		parsed, err := redis.ParseURL(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.MaxRetries = cfg.MaxRetries
	return NewRedisBackendFromClient(redis.NewClient(opts), cfg.KeyPrefix, cfg.ScanCount), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, keyPrefix string, scanCount int64) *RedisBackend {
	if scanCount <= 0 {
		scanCount = 500
	}
	return &RedisBackend{
		client:    client,
		prefix:    keyPrefix,
		scanCount: scanCount,
	}
}

// Name implements Backend.
func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) fullKey(key string) string {
	return r.prefix + key
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return data, nil
}

// Set implements Backend. Redis owns expiry: SET key value EX ttl.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.fullKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// DeleteByPattern implements Backend with SCAN MATCH and batched DEL, never KEYS.
// Keys inserted while the scan runs may survive the sweep.
func (r *RedisBackend) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	match := r.fullKey(pattern)
	iter := r.client.Scan(ctx, 0, match, r.scanCount).Iterator()

	deleted := 0
	batch := make([]string, 0, r.scanCount)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to delete pattern batch from redis: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= r.scanCount {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan redis for %q: %w", match, err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Clear implements Backend as a "*" sweep under the key prefix. Without a prefix that
// sweep removes every key in the selected database, including keys this service did
// not write.
func (r *RedisBackend) Clear(ctx context.Context) error {
	if r.prefix == "" {
		log.Warn(ctx, "clearing redis without a key prefix removes every key in the database",
			"op", "clear", "db", r.client.Options().DB)
	}
	_, err := r.DeleteByPattern(ctx, "*")
	return err
}

// Ping implements Backend.
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Stats implements Backend. Redis does not expose per-prefix counters, so Items is the
// size of the selected database.
func (r *RedisBackend) Stats(ctx context.Context) (Stats, error) {
	n, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read redis dbsize: %w", err)
	}
	return Stats{Items: n}, nil
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
