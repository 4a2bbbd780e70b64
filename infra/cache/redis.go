// Package cache holds the Redis client used for request counters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter connects to redisURL and pings it before returning.
func NewRedisCounter(redisURL, prefix string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCounterFromClient(client, prefix), nil
}

func NewRedisCounterFromClient(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

// Incr counts a hit on key in a fixed window that starts at the first hit.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := c.prefix + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX keeps the window anchored at the first hit.
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("cache.Incr: %w", err)
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}
