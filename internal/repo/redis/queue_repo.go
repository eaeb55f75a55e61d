package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrQueueNotFound = errors.New("candidate queue not found")

const (
	queueItemsPrefix = "matchqueue:items:"
	queueOwnerPrefix = "matchqueue:owner:"
)

// QueueRepo holds ranked candidate queues between conversation turns. Each
// queue lives under an opaque id with a TTL; expiry is equivalent to the
// seeker cancelling the session.
type QueueRepo struct {
	client *goredis.Client
}

func NewQueueRepo(client *goredis.Client) *QueueRepo {
	return &QueueRepo{client: client}
}

func (r *QueueRepo) Save(ctx context.Context, queueID string, seekerID int64, candidateIDs []int64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(queueID) == "" || seekerID <= 0 || ttl <= 0 {
		return fmt.Errorf("invalid queue payload")
	}

	items := make([]interface{}, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		items = append(items, strconv.FormatInt(id, 10))
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, queueItemsKey(queueID))
	if len(items) > 0 {
		pipe.RPush(ctx, queueItemsKey(queueID), items...)
		pipe.Expire(ctx, queueItemsKey(queueID), ttl)
	}
	pipe.Set(ctx, queueOwnerKey(queueID), strconv.FormatInt(seekerID, 10), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save candidate queue: %w", err)
	}

	return nil
}

// Owner resolves the seeker a queue belongs to. An expired or unknown queue
// returns ErrQueueNotFound.
func (r *QueueRepo) Owner(ctx context.Context, queueID string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(queueID) == "" {
		return 0, fmt.Errorf("queue id is required")
	}

	value, err := r.client.Get(ctx, queueOwnerKey(queueID)).Result()
	if err == goredis.Nil {
		return 0, ErrQueueNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get queue owner: %w", err)
	}

	seekerID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || seekerID <= 0 {
		return 0, ErrQueueNotFound
	}

	return seekerID, nil
}

// Pop removes and returns the next candidate id. ok=false means the queue is
// exhausted; the owner key may still be alive.
func (r *QueueRepo) Pop(ctx context.Context, queueID string) (int64, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(queueID) == "" {
		return 0, false, fmt.Errorf("queue id is required")
	}

	value, err := r.client.LPop(ctx, queueItemsKey(queueID)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("pop queue item: %w", err)
	}

	candidateID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || candidateID <= 0 {
		return 0, false, fmt.Errorf("malformed queue item %q", value)
	}

	return candidateID, true, nil
}

func (r *QueueRepo) Remaining(ctx context.Context, queueID string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	count, err := r.client.LLen(ctx, queueItemsKey(queueID)).Result()
	if err != nil {
		return 0, fmt.Errorf("read queue length: %w", err)
	}

	return count, nil
}

func (r *QueueRepo) Delete(ctx context.Context, queueID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(queueID) == "" {
		return nil
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, queueItemsKey(queueID))
	pipe.Del(ctx, queueOwnerKey(queueID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete candidate queue: %w", err)
	}

	return nil
}

func queueItemsKey(queueID string) string {
	return queueItemsPrefix + queueID
}

func queueOwnerKey(queueID string) string {
	return queueOwnerPrefix + queueID
}
