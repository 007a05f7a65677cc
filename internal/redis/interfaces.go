package redis

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseRideLock(ctx context.Context, rideID, token string) error
}

// GeoCacheInterface defines the interface for geocoding and routing caches.
type GeoCacheInterface interface {
	GetPlace(ctx context.Context, address string) (*domain.Place, error)
	SetPlace(ctx context.Context, address string, place *domain.Place) error
	GetRouteDuration(ctx context.Context, origin, destination domain.Coordinates) (time.Duration, bool, error)
	SetRouteDuration(ctx context.Context, origin, destination domain.Coordinates, d time.Duration) error
}

// IdempotencyStoreInterface defines the interface for stored request responses.
type IdempotencyStoreInterface interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Set(ctx context.Context, scope, key string, data []byte, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface        = (*LockStore)(nil)
	_ GeoCacheInterface         = (*CacheStore)(nil)
	_ IdempotencyStoreInterface = (*IdempotencyStore)(nil)
)
