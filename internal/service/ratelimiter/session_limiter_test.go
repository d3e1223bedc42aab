package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, perWindow int, window time.Duration) (*SessionLimiter, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewSessionLimiter(rdb, perWindow, window)

	cleanup := func() {
		_ = rdb.Close()
		mr.Close()
	}
	return limiter, mr, cleanup
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *SessionLimiter

	allowed, retryAfter, err := limiter.Allow(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed to be true for nil limiter")
	}
	if retryAfter != 0 {
		t.Fatalf("expected zero retryAfter, got %v", retryAfter)
	}
}

func TestAllow_DisabledBucket_FailOpen(t *testing.T) {
	limiter, _, cleanup := newTestLimiter(t, 0, time.Minute)
	defer cleanup()

	allowed, _, err := limiter.Allow(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed to be true with a disabled bucket")
	}
}

func TestAllow_RespectsCapacityAndRetryAfter(t *testing.T) {
	ctx := context.Background()
	limiter, _, cleanup := newTestLimiter(t, 3, time.Hour)
	defer cleanup()

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected allowed=true on call %d", i)
		}
		if retryAfter != 0 {
			t.Fatalf("expected retryAfter=0 on allowed call %d, got %v", i, retryAfter)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error on exhausted call: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter to deny once capacity is exhausted")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retryAfter when denied, got %v", retryAfter)
	}
}

func TestAllow_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	limiter, _, cleanup := newTestLimiter(t, 1, time.Hour)
	defer cleanup()

	if allowed, _, _ := limiter.Allow(ctx, "sess-a"); !allowed {
		t.Fatalf("first call for sess-a must be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "sess-a"); allowed {
		t.Fatalf("second call for sess-a must be denied")
	}
	if allowed, _, _ := limiter.Allow(ctx, "sess-b"); !allowed {
		t.Fatalf("sess-b must have its own bucket")
	}
}

func TestAllow_BucketKeyExpires(t *testing.T) {
	limiter, mr, cleanup := newTestLimiter(t, 5, time.Minute)
	defer cleanup()

	if allowed, _, err := limiter.Allow(context.Background(), "sess-1"); err != nil || !allowed {
		t.Fatalf("expected first call to be allowed, got allowed=%v err=%v", allowed, err)
	}
	ttl := mr.TTL("rate:session:sess-1")
	if ttl <= 0 {
		t.Fatalf("expected bucket key to carry a TTL, got %v", ttl)
	}
}

func TestAllow_RedisDown_FailOpen(t *testing.T) {
	limiter, mr, cleanup := newTestLimiter(t, 5, time.Minute)
	defer cleanup()
	mr.Close()

	allowed, _, err := limiter.Allow(context.Background(), "sess-1")
	if err == nil {
		t.Fatalf("expected an error once redis is gone")
	}
	if !allowed {
		t.Fatalf("expected fail-open when redis is unreachable")
	}
}
