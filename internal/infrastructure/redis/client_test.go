package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestIncrWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrWithTTL(ctx, "rl:k", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("count=%d want %d", got, want)
		}
	}
	if ttl := mr.TTL("rl:k"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	got, err := c.IncrWithTTL(ctx, "rl:k", time.Minute)
	if err != nil {
		t.Fatalf("incr after expiry: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected counter reset after expiry, got %d", got)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not-a-url://"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
