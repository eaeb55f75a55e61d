package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrStateNotFound = errors.New("chat state not found")

const chatStatePrefix = "chatstate:"

// StateRepo persists the bot's per-chat conversation step so a restart does
// not drop users mid dialogue.
type StateRepo struct {
	client *goredis.Client
}

func NewStateRepo(client *goredis.Client) *StateRepo {
	return &StateRepo{client: client}
}

func (r *StateRepo) Set(ctx context.Context, telegramID int64, state string, data map[string]string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if telegramID <= 0 || state == "" || ttl <= 0 {
		return fmt.Errorf("invalid chat state payload")
	}

	fields := map[string]interface{}{"state": state}
	for key, value := range data {
		fields["data:"+key] = value
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, chatStateKey(telegramID))
	pipe.HSet(ctx, chatStateKey(telegramID), fields)
	pipe.Expire(ctx, chatStateKey(telegramID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set chat state: %w", err)
	}

	return nil
}

func (r *StateRepo) Get(ctx context.Context, telegramID int64) (string, map[string]string, error) {
	if r.client == nil {
		return "", nil, fmt.Errorf("redis client is nil")
	}
	if telegramID <= 0 {
		return "", nil, fmt.Errorf("invalid telegram id")
	}

	values, err := r.client.HGetAll(ctx, chatStateKey(telegramID)).Result()
	if err != nil {
		return "", nil, fmt.Errorf("get chat state: %w", err)
	}
	if len(values) == 0 {
		return "", nil, ErrStateNotFound
	}

	state := values["state"]
	if state == "" {
		return "", nil, ErrStateNotFound
	}

	data := make(map[string]string)
	for key, value := range values {
		if len(key) > 5 && key[:5] == "data:" {
			data[key[5:]] = value
		}
	}

	return state, data, nil
}

func (r *StateRepo) Clear(ctx context.Context, telegramID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if telegramID <= 0 {
		return nil
	}

	if err := r.client.Del(ctx, chatStateKey(telegramID)).Err(); err != nil {
		return fmt.Errorf("clear chat state: %w", err)
	}

	return nil
}

func chatStateKey(telegramID int64) string {
	return chatStatePrefix + strconv.FormatInt(telegramID, 10)
}
