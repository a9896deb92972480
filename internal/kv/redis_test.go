package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisClient(t *testing.T) *RedisClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisClient(rdb)
}

func TestRedisClientSetGetDelete(t *testing.T) {
	c := newTestRedisClient(t)
	ctx := context.Background()

	if _, present, err := c.Get(ctx, "missing"); err != nil || present {
		t.Fatalf("expected absent, got present=%v err=%v", present, err)
	}

	ok, err := c.Set(ctx, "k", "v", false, 0)
	if err != nil || !ok {
		t.Fatalf("expected set to succeed, ok=%v err=%v", ok, err)
	}

	v, present, err := c.Get(ctx, "k")
	if err != nil || !present || v != "v" {
		t.Fatalf("unexpected get result: %q present=%v err=%v", v, present, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, present, err := c.Get(ctx, "k"); err != nil || present {
		t.Fatalf("expected absent after delete, got present=%v err=%v", present, err)
	}
}

func TestRedisClientSetNxMutualExclusion(t *testing.T) {
	c := newTestRedisClient(t)
	ctx := context.Background()

	ok, err := c.Set(ctx, "lock:a", "token1", true, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = c.Set(ctx, "lock:a", "token2", true, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected second setnx to fail")
	}
}
