package database

import (
	"context"
	"fmt"
	"time"

	"product-analytics/internal/common/config"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client redis.Cmdable
	closer func() error
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb, closer: rdb.Close}, nil
}

// NewRedisFromClient wraps an existing client (miniredis or redismock in tests).
func NewRedisFromClient(c redis.Cmdable) *RedisClient {
	return &RedisClient{Client: c}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// IncrWindow increments a fixed-window counter and returns the new count
// and the time left in the window. The window starts on the first hit.
func (c *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if count == 1 {
		if err := c.Client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis pexpire %s: %w", key, err)
		}
		return count, window, nil
	}

	ttl, err := c.Client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis pttl %s: %w", key, err)
	}
	if ttl < 0 {
		// counter lost its expiry; restart the window
		if err := c.Client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis pexpire %s: %w", key, err)
		}
		ttl = window
	}
	return count, ttl, nil
}
