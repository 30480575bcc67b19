package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisStoreRoundTrip(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "afs", "device-1")
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	want := testSession(time.Now().Add(time.Hour))
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Token != want.Token || got.UserID != want.UserID || got.Channel != want.Channel {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRedisStoreKeyExpiresWithSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "afs", "device-1")
	ctx := context.Background()

	if err := store.Save(ctx, testSession(time.Now().Add(30*time.Minute))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(31 * time.Minute)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestRedisStoreSaveExpiredClears(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "afs", "device-1")
	ctx := context.Background()

	if err := store.Save(ctx, testSession(time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, testSession(time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("saving an expired session must clear, got %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreDeviceIsolation(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisStore(rdb, "afs", "device-a")
	b := NewRedisStore(rdb, "afs", "device-b")

	if err := a.Save(ctx, testSession(time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := b.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("devices must not share sessions, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "afs", "device-1")
	ctx := context.Background()

	mr.Close()

	if err := store.Save(ctx, testSession(time.Now().Add(time.Hour))); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
