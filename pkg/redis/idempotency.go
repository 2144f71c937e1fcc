package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore records order results keyed by caller-supplied tokens
// ⭐ SSOT: 멱등성 키 저장은 여기서만
// A retried request with the same key must observe the recorded result
// instead of executing again.
type IdempotencyStore struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore creates a redis-backed idempotency store
func NewIdempotencyStore(client *Client, prefix string, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Enabled returns whether the backing redis connection is available
func (s *IdempotencyStore) Enabled() bool {
	return s.client != nil && s.client.Enabled()
}

func (s *IdempotencyStore) key(idempotencyKey string) string {
	return fmt.Sprintf("%s:idem:%s", s.prefix, idempotencyKey)
}

// Reserve atomically claims a key. Returns true if this caller owns the key
// and should execute; false if a result (or an in-flight marker) already
// exists.
func (s *IdempotencyStore) Reserve(ctx context.Context, idempotencyKey string) (bool, error) {
	ok, err := s.client.Redis().SetNX(ctx, s.key(idempotencyKey), "pending", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency reserve failed: %w", err)
	}
	return ok, nil
}

// Record stores the serialized result for a key
func (s *IdempotencyStore) Record(ctx context.Context, idempotencyKey string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("idempotency record marshal failed: %w", err)
	}

	if err := s.client.Redis().Set(ctx, s.key(idempotencyKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency record failed: %w", err)
	}
	return nil
}

// Get retrieves a previously recorded result into out.
// Returns (false, nil) when no result exists or the key is still pending.
func (s *IdempotencyStore) Get(ctx context.Context, idempotencyKey string, out interface{}) (bool, error) {
	data, err := s.client.Redis().Get(ctx, s.key(idempotencyKey)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency get failed: %w", err)
	}

	if string(data) == "pending" {
		return false, nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("idempotency get unmarshal failed: %w", err)
	}
	return true, nil
}

// Release drops a reservation after a failed execution so the caller may retry
func (s *IdempotencyStore) Release(ctx context.Context, idempotencyKey string) error {
	return s.client.Redis().Del(ctx, s.key(idempotencyKey)).Err()
}
