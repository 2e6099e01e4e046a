// Package rediscache provides the Redis-backed fingerprint lookaside.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"photovault/pkg/config"
	"photovault/pkg/logger"
)

const fingerprintKeyPrefix = "pv:fp:"

// NewClient connects to Redis. Connection failure is reported but not
// fatal; the cache degrades to pass-through and the pipeline runs
// DB-only.
func NewClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.StartupWarn("redis", "redis unreachable, fingerprint cache degraded to database-only", map[string]interface{}{
			"addr":  cfg.Addr,
			"error": err.Error(),
		})
	} else {
		logger.Startup("redis", "redis connected", map[string]interface{}{"addr": cfg.Addr})
	}
	return client
}

// FingerprintCache is a best-effort fingerprint→uuid cache. All Redis
// errors are swallowed; callers always fall through to the database on
// a miss.
type FingerprintCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFingerprintCache wraps a Redis client as a fingerprint cache.
func NewFingerprintCache(client *redis.Client, ttl time.Duration) *FingerprintCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FingerprintCache{client: client, ttl: ttl}
}

// Get looks up a fingerprint. Returns false on miss or any error.
func (c *FingerprintCache) Get(ctx context.Context, fingerprint string) (uuid.UUID, bool) {
	val, err := c.client.Get(ctx, fingerprintKeyPrefix+fingerprint).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.DB("cache_get", "fingerprint cache unavailable", map[string]interface{}{"error": err.Error()})
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Set records a fingerprint→uuid mapping. Errors are swallowed.
func (c *FingerprintCache) Set(ctx context.Context, fingerprint string, id uuid.UUID) {
	if err := c.client.Set(ctx, fingerprintKeyPrefix+fingerprint, id.String(), c.ttl).Err(); err != nil {
		logger.DB("cache_set", "fingerprint cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
