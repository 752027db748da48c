package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// stubRedis fakes the handful of commands the client wraps.
type stubRedis struct {
	data        map[string]string
	counters    map[string]int64
	expireCalls map[string]time.Duration
}

func newStubRedis() *stubRedis {
	return &stubRedis{
		data:        make(map[string]string),
		counters:    make(map[string]int64),
		expireCalls: make(map[string]time.Duration),
	}
}

func (s *stubRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (s *stubRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	s.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := s.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := s.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	s.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (s *stubRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	s.counters[key]++
	return redis.NewIntResult(s.counters[key], nil)
}

func (s *stubRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	s.expireCalls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (s *stubRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(s.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllowCountsAndLimits(t *testing.T) {
	ctx := context.Background()
	stub := newStubRedis()
	client := &Client{store: stub}

	for want := int64(1); want <= 2; want++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "checkout", 2, time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed || count != want {
			t.Fatalf("hit %d: allowed=%v count=%d", want, allowed, count)
		}
	}

	allowed, _, err := client.FixedWindowAllow(ctx, "checkout", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("third hit should exceed the limit")
	}

	// only the first increment stamps the window TTL
	if len(stub.expireCalls) != 1 {
		t.Fatalf("expected one expire call, got %d", len(stub.expireCalls))
	}
	if ttl := stub.expireCalls[client.RateLimitKey("checkout")]; ttl != time.Second {
		t.Fatalf("unexpected window ttl %v", ttl)
	}
}

func TestIdempotencyMarkLifecycle(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newStubRedis()}
	key := client.IdempotencyKey("stripe-webhook", "evt_123")

	set, err := client.SetNX(ctx, key, "1", time.Minute)
	if err != nil || !set {
		t.Fatalf("expected first mark to win, set=%v err=%v", set, err)
	}

	set, err = client.SetNX(ctx, key, "1", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if set {
		t.Fatal("expected duplicate mark to lose")
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	set, err = client.SetNX(ctx, key, "1", time.Minute)
	if err != nil || !set {
		t.Fatalf("expected mark to succeed after delete, set=%v err=%v", set, err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("scope", "id"): "sf:idempotency:scope:id",
		client.RateLimitKey("scope"):         "sf:rate_limit:scope",
		client.LockKey("cron"):               "sf:lock:cron",
		client.IdempotencyKey("scope", ""):   "sf:idempotency:scope",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("key mismatch: got %s want %s", got, want)
		}
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}
