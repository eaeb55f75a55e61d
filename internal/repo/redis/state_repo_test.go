package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewStateRepo(client)
	ctx := context.Background()

	data := map[string]string{"age": "21", "university": "AAU"}
	if err := repo.Set(ctx, 555, "reg:bio", data, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	state, got, err := repo.Get(ctx, 555)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state != "reg:bio" {
		t.Fatalf("unexpected state: %s", state)
	}
	if got["age"] != "21" || got["university"] != "AAU" {
		t.Fatalf("unexpected data: %+v", got)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected data size: %+v", got)
	}
}

func TestStateSetReplacesPreviousData(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewStateRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, 555, "reg:age", map[string]string{"stale": "yes"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, 555, "reg:gender", map[string]string{"age": "21"}, time.Minute); err != nil {
		t.Fatalf("re-set: %v", err)
	}

	state, data, err := repo.Get(ctx, 555)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state != "reg:gender" {
		t.Fatalf("unexpected state: %s", state)
	}
	if _, ok := data["stale"]; ok {
		t.Fatalf("stale field survived re-set: %+v", data)
	}
}

func TestStateExpiresAndClears(t *testing.T) {
	client, mr := newTestClient(t)
	repo := NewStateRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, 555, "confess:text", nil, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, _, err := repo.Get(ctx, 555); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound after expiry, got %v", err)
	}

	if err := repo.Set(ctx, 555, "confess:text", nil, time.Minute); err != nil {
		t.Fatalf("set again: %v", err)
	}
	if err := repo.Clear(ctx, 555); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, _, err := repo.Get(ctx, 555); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound after clear, got %v", err)
	}
}

func TestStateUnknownUser(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewStateRepo(client)

	if _, _, err := repo.Get(context.Background(), 777); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}
