package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stwalsh4118/estatedesk/internal/config"
)

// KeyPrefix namespaces every dashboard entry so Invalidate can find them.
const KeyPrefix = "estatedesk:dashboard:"

// scanBatch is the COUNT hint passed to SCAN during invalidation.
const scanBatch = 100

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// DashboardCache stores computed dashboard payloads as JSON in Redis.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client for cfg.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// NewDashboardCache wraps client. Entries expire after ttl.
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl}
}

// Key builds the full key for a view and its parameters.
func Key(view string, params ...any) string {
	key := KeyPrefix + view
	for _, p := range params {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Ping checks the Redis connection.
func (c *DashboardCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get decodes the entry at key into dest. It returns ErrMiss when absent.
func (c *DashboardCache) Get(ctx context.Context, key string, dest any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return nil
}

// Set stores value at key as JSON with the configured TTL.
func (c *DashboardCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every dashboard entry and reports how many were removed.
func (c *DashboardCache) Invalidate(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan dashboard keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete dashboard keys: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Close releases the underlying client.
func (c *DashboardCache) Close() error {
	return c.client.Close()
}
