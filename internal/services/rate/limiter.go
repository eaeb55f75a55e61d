package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// window is one fixed counting window. The limiter holds a stack of them and
// an action passes only when every window has room.
type window struct {
	keyPrefix string
	span      time.Duration
	limit     int64
}

func (w window) key(userID int64) string {
	return w.keyPrefix + strconv.FormatInt(userID, 10)
}

type Limiter struct {
	store   WindowStore
	windows []window
}

// NewLimiter builds the per-user action limiter. A zero or negative limit
// disables that window entirely.
func NewLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	l := &Limiter{store: store}
	if perMinute > 0 {
		l.windows = append(l.windows, window{
			keyPrefix: "rate:actions:min:",
			span:      time.Minute,
			limit:     int64(perMinute),
		})
	}
	if per10Sec > 0 {
		l.windows = append(l.windows, window{
			keyPrefix: "rate:actions:10s:",
			span:      10 * time.Second,
			limit:     int64(per10Sec),
		})
	}
	return l
}

// AllowAction counts the action against every window and reports whether it
// may proceed. All windows are incremented even when one is already full, so
// hammering a closed window keeps it closed. When blocked, the returned
// retry-after is the longest wait across the violated windows.
func (l *Limiter) AllowAction(ctx context.Context, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, w.key(userID), w.span)
		if err != nil {
			return 0, false, err
		}
		if count > w.limit {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfter peeks the windows without consuming. Zero means the next action
// would be allowed.
func (l *Limiter) RetryAfter(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, w.key(userID))
		if err != nil {
			return 0, err
		}
		if count >= w.limit {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
