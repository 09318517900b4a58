// Package cache keeps the read-side Redis cache consistent with
// ingested data.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultScanBatch = 200

// RedisConfig controls the Redis connection.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ScanBatch    int64
}

// Redis implements hotlist.Cache over a go-redis client.
type Redis struct {
	client    *redis.Client
	scanBatch int64
}

// NewRedis connects a client. The connection is verified lazily; use
// Ping for an explicit health check.
func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	batch := cfg.ScanBatch
	if batch <= 0 {
		batch = defaultScanBatch
	}
	return &Redis{client: client, scanBatch: batch}
}

// NewRedisWithClient wraps an existing client (primarily for testing
// against miniredis or a shared client).
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, scanBatch: defaultScanBatch}
}

// DeleteByPattern removes every key matching the glob pattern. Keys are
// collected with SCAN so large keyspaces never block the server.
func (r *Redis) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, r.scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete %q keys: %w", pattern, err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// EnsureTTL walks keys matching the pattern and attaches the TTL to any
// key that has none. Keys without an expiry would otherwise survive
// forever once the invalidation pattern set changes.
func (r *Redis) EnsureTTL(ctx context.Context, pattern string, ttl time.Duration) (int64, error) {
	var (
		cursor uint64
		fixed  int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, r.scanBatch).Result()
		if err != nil {
			return fixed, fmt.Errorf("scan %q: %w", pattern, err)
		}
		for _, key := range keys {
			left, err := r.client.TTL(ctx, key).Result()
			if err != nil {
				return fixed, fmt.Errorf("ttl %q: %w", key, err)
			}
			if left == -1 {
				if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
					return fixed, fmt.Errorf("expire %q: %w", key, err)
				}
				fixed++
			}
		}
		cursor = next
		if cursor == 0 {
			return fixed, nil
		}
	}
}

// Ping reports connection health.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
