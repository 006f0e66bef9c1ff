package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestLimiter returns a Limiter on a local Redis with the test keys
// removed. It skips when Redis is not running on localhost:6379.
func newTestLimiter(t *testing.T) (*Limiter, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cleanup := func() {
		iter := client.Scan(ctx, 0, "rl:test:*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewLimiter(client, nil), client
}

var testRule = Rule{Key: "rl:test:", Limit: 3, Window: time.Minute}

func TestAllow_WithinAndOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= testRule.Limit; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1", testRule)
		if err != nil {
			t.Fatalf("Allow() #%d error: %v", i, err)
		}
		if !ok {
			t.Fatalf("Allow() #%d: expected allowed", i)
		}
	}

	ok, err := l.Allow(ctx, "10.0.0.1", testRule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if ok {
		t.Fatal("expected request over the limit to be rejected")
	}

	// Other identifiers are counted separately.
	if ok, _ := l.Allow(ctx, "10.0.0.2", testRule); !ok {
		t.Fatal("expected a different identifier to be allowed")
	}
}

func TestAllow_SetsWindowTTL(t *testing.T) {
	l, client := newTestLimiter(t)
	ctx := context.Background()

	if _, err := l.Allow(ctx, "ttl", testRule); err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	ttl := client.TTL(ctx, testRule.Key+"ttl").Val()
	if ttl <= 0 || ttl > testRule.Window {
		t.Fatalf("expected ttl within (0, %v], got %v", testRule.Window, ttl)
	}
}

func TestAllow_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	l := NewLimiter(client, nil)

	ok, err := l.Allow(context.Background(), "x", RuleConnect)
	if err == nil {
		t.Fatal("expected an error from an unreachable redis")
	}
	if !ok {
		t.Fatal("expected fail-open on redis errors")
	}
}
