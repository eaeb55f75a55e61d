package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/Envologia/unimatch-ethio/internal/repo/redis"
)

func newTestLimiter(t *testing.T, perMinute, per10Sec int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(redrepo.NewRateRepo(client), perMinute, per10Sec), mr
}

func TestAllowActionWithinLimits(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowAction(ctx, 101)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("action #%d should be allowed", i+1)
		}
		if retryAfter != 0 {
			t.Fatalf("no retry-after expected while allowed, got %d", retryAfter)
		}
	}
}

func TestAllowActionBlocksBurst(t *testing.T) {
	limiter, mr := newTestLimiter(t, 10, 2)
	ctx := context.Background()

	_, _, _ = limiter.AllowAction(ctx, 101)
	_, _, _ = limiter.AllowAction(ctx, 101)

	retryAfter, allowed, err := limiter.AllowAction(ctx, 101)
	if err != nil {
		t.Fatalf("allow #3: %v", err)
	}
	if allowed {
		t.Fatalf("third action inside 10s must be blocked")
	}
	if retryAfter <= 0 || retryAfter > 10 {
		t.Fatalf("unexpected retry-after: %d", retryAfter)
	}

	mr.FastForward(11 * time.Second)

	_, allowed, err = limiter.AllowAction(ctx, 101)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatalf("action must be allowed after the window expired")
	}
}

func TestLimitsAreIndependentPerUser(t *testing.T) {
	limiter, _ := newTestLimiter(t, 10, 1)
	ctx := context.Background()

	if _, allowed, _ := limiter.AllowAction(ctx, 101); !allowed {
		t.Fatalf("first action for user 101 must be allowed")
	}
	if _, allowed, _ := limiter.AllowAction(ctx, 101); allowed {
		t.Fatalf("second action for user 101 must be blocked")
	}
	if _, allowed, _ := limiter.AllowAction(ctx, 202); !allowed {
		t.Fatalf("user 202 must not share user 101's window")
	}
}

func TestRetryAfterDoesNotConsume(t *testing.T) {
	limiter, _ := newTestLimiter(t, 10, 2)
	ctx := context.Background()

	_, _, _ = limiter.AllowAction(ctx, 101)
	_, _, _ = limiter.AllowAction(ctx, 101)

	retryAfter, err := limiter.RetryAfter(ctx, 101)
	if err != nil {
		t.Fatalf("retry after: %v", err)
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry-after at the ceiling, got %d", retryAfter)
	}

	// Peeking twice must not move the counters.
	again, err := limiter.RetryAfter(ctx, 101)
	if err != nil {
		t.Fatalf("retry after again: %v", err)
	}
	if again != retryAfter {
		t.Fatalf("peek changed the window state: %d -> %d", retryAfter, again)
	}
}

func TestZeroLimitsDisableChecks(t *testing.T) {
	limiter, _ := newTestLimiter(t, 0, 0)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if _, allowed, err := limiter.AllowAction(ctx, 101); err != nil || !allowed {
			t.Fatalf("action #%d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
}
