// Package cache is a read-through cache on Redis. It is an optimization
// only: every backend error is absorbed and reported as a miss or no-op, so
// the rest of the system stays correct with Redis completely gone.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

func New(client *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Get returns the cached value for key and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Debug("cache set failed, skipping", zap.String("key", key), zap.Error(err))
	}
}

// Del removes key.
func (c *Cache) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("cache del failed, skipping", zap.Strings("keys", keys), zap.Error(err))
	}
}

// MGet returns present values keyed by their cache key.
func (c *Cache) MGet(ctx context.Context, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Debug("cache mget failed, treating as miss", zap.Error(err))
		return out
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out
}

// MSet stores several key/value pairs, all with the same ttl. Redis MSET has
// no ttl argument so this pipelines individual SETs.
func (c *Cache) MSet(ctx context.Context, pairs map[string]string, ttl time.Duration) {
	if len(pairs) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for k, v := range pairs {
		pipe.Set(ctx, k, v, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("cache mset failed, skipping", zap.Error(err))
	}
}

// InvalidatePattern deletes every key matching the glob pattern and returns
// how many were removed. SCAN keeps this safe on large keyspaces.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) int {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.logger.Debug("cache scan failed, stopping invalidation",
				zap.String("pattern", pattern), zap.Error(err))
			return deleted
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Debug("cache del failed during invalidation",
					zap.String("pattern", pattern), zap.Error(err))
			} else {
				deleted += int(n)
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

// GetJSON unmarshals a cached JSON value into out, reporting presence.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Debug("cache entry is not valid JSON, dropping", zap.String("key", key), zap.Error(err))
		c.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals value and stores it under key for ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("cache value not marshalable, skipping", zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(ctx, key, string(raw), ttl)
}
