package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "points-ledger:activity:"

// RedisLimiter allows one reward per key per window across every instance sharing the Redis
type RedisLimiter struct {
	client redis.Cmdable
	window time.Duration
}

// NewRedisLimiter creates a limiter backed by SET NX EX
func NewRedisLimiter(client redis.Cmdable, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, window: window}
}

// NewRedisClient connects to the Redis server at redisURL
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Allow claims the window for key. It returns false while an earlier claim is still live.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), l.window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim activity window: %w", err)
	}
	return ok, nil
}
