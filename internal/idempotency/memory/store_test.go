package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/centralcompras/internal/idempotency/memory"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil for unknown key", func(t *testing.T) {
		store := memory.NewStore(0)

		resp, err := store.Get(ctx, "missing")
		if err != nil || resp != nil {
			t.Errorf("expected nil, nil; got %+v, %v", resp, err)
		}
	})

	t.Run("keeps the first response for a key", func(t *testing.T) {
		store := memory.NewStore(0)

		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, Body: []byte(`{"id":1}`), OrderID: 1})
		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, Body: []byte(`{"id":2}`), OrderID: 2})

		resp, err := store.Get(ctx, "k")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.OrderID != 1 || string(resp.Body) != `{"id":1}` {
			t.Errorf("expected first response, got %+v", resp)
		}
	})

	t.Run("forgets entries after the ttl", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		store := memory.NewStore(time.Hour).WithClock(func() time.Time { return now })

		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, OrderID: 1})

		now = now.Add(59 * time.Minute)
		if resp, _ := store.Get(ctx, "k"); resp == nil {
			t.Fatal("expected entry within ttl")
		}

		now = now.Add(time.Minute)
		if resp, _ := store.Get(ctx, "k"); resp != nil {
			t.Errorf("expected expired entry to be ignored, got %+v", resp)
		}

		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, OrderID: 2})
		if resp, _ := store.Get(ctx, "k"); resp == nil || resp.OrderID != 2 {
			t.Errorf("expected expired key to be reusable, got %+v", resp)
		}
	})
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	locker := memory.NewLocker()

	unlock, err := locker.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("expected lock, got %v", err)
	}

	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, ports.ErrKeyLocked) {
		t.Errorf("expected ErrKeyLocked, got %v", err)
	}
	if _, err := locker.Lock(ctx, "other"); err != nil {
		t.Errorf("expected independent key to lock, got %v", err)
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if _, err := locker.Lock(ctx, "k"); err != nil {
		t.Errorf("expected lock after release, got %v", err)
	}
}
