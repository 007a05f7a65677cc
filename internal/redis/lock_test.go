package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newTestClient connects to REDIS_TEST_ADDR, skipping when it is unset.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLockStore_ExclusiveUntilReleased(t *testing.T) {
	client := newTestClient(t)
	store := NewLockStore(client)
	ctx := context.Background()
	rideID := uuid.New().String()

	token, ok, err := store.AcquireRideLock(ctx, rideID, time.Minute)
	if err != nil || !ok || token == "" {
		t.Fatalf("expected lock, got %q %v %v", token, ok, err)
	}
	if _, ok, _ := store.AcquireRideLock(ctx, rideID, time.Minute); ok {
		t.Fatal("lock acquired twice")
	}

	if err := store.ReleaseRideLock(ctx, rideID, token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := store.AcquireRideLock(ctx, rideID, time.Minute); !ok {
		t.Error("expected lock to be free after release")
	}
	_ = client.Del(ctx, rideLockKey(rideID)).Err()
}

func TestLockStore_ExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	client := newTestClient(t)
	store := NewLockStore(client)
	ctx := context.Background()
	rideID := uuid.New().String()

	stale, ok, err := store.AcquireRideLock(ctx, rideID, 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("expected lock, got %v %v", ok, err)
	}
	time.Sleep(100 * time.Millisecond)

	current, ok, err := store.AcquireRideLock(ctx, rideID, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock after expiry, got %v %v", ok, err)
	}

	if err := store.ReleaseRideLock(ctx, rideID, stale); err != nil {
		t.Fatalf("release: %v", err)
	}
	held, err := client.Get(ctx, rideLockKey(rideID)).Result()
	if err != nil || held != current {
		t.Errorf("successor lock lost: %q %v", held, err)
	}
	_ = client.Del(ctx, rideLockKey(rideID)).Err()
}
