package maps

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{redis: client, ttl: ttl, log: log.With().Str("component", "geocode_cache").Logger()}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache get")
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set")
	}
}
