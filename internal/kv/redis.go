package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient adapts a *redis.Client to the Client contract. Grounded on
// goadesign-goa-ai/registry/service.go's ServiceOptions.Redis field and
// its setResultStreamTTL method, which is the pack's only example of a
// production *redis.Client wired into a service for TTL-bearing
// key/value operations.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient wraps an existing *redis.Client.
func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisClient) Set(ctx context.Context, key, value string, nx bool, ex time.Duration) (bool, error) {
	if nx {
		ok, err := c.rdb.SetNX(ctx, key, value, ex).Result()
		if err != nil {
			return false, fmt.Errorf("kv: setnx %q: %w", key, err)
		}
		return ok, nil
	}
	if err := c.rdb.Set(ctx, key, value, ex).Err(); err != nil {
		return false, fmt.Errorf("kv: set %q: %w", key, err)
	}
	return true, nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}
