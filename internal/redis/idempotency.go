package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps replayable responses of mutating requests.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func idempotencyKey(scope, key string) string {
	return "idempotency:" + scope + ":" + key
}

// Get returns the stored response, or nil when none exists.
func (s *IdempotencyStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores a response for ttl.
func (s *IdempotencyStore) Set(ctx context.Context, scope, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyKey(scope, key), data, ttl).Err()
}
