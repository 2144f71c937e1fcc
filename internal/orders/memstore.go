package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the in-process idempotency fallback used when redis is
// disabled. Semantics mirror the redis store: reserve-then-record, TTL expiry.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*memEntry
}

type memEntry struct {
	pending   bool
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory result store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]*memEntry),
	}
}

// Reserve claims a key if no live entry exists
func (s *MemoryStore) Reserve(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && !s.expired(entry) {
		return false, nil
	}
	s.entries[key] = &memEntry{pending: true, expiresAt: time.Now().Add(s.ttl)}
	return true, nil
}

// Record stores the serialized result for a key
func (s *MemoryStore) Record(ctx context.Context, key string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("memory store marshal failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memEntry{data: data, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// Get retrieves a recorded result into out. Pending or expired entries
// report not-found.
func (s *MemoryStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && s.expired(entry) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok || entry.pending {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, out); err != nil {
		return false, fmt.Errorf("memory store unmarshal failed: %w", err)
	}
	return true, nil
}

// Release drops a reservation
func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) expired(entry *memEntry) bool {
	return s.ttl > 0 && time.Now().After(entry.expiresAt)
}
