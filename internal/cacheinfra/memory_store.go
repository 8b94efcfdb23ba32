package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process implementation of the cache key-value facade
// backed by sturdyc. sturdyc applies a single client-wide TTL, so each entry
// carries its own deadline to honour the per-entry expiration.
type MemoryStore struct {
	client *sturdyc.Client[memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryStore validates cfg and creates the sturdyc client.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
	)

	return &MemoryStore{client: client, maxTTL: cfg.MaxTTL, now: time.Now}, nil
}

// Get returns the value stored under key if it has not expired.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	entry, ok := s.client.Get(key)
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		s.client.Delete(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key for ttl, capped at MaxTTL.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 || ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	s.client.Set(key, memoryEntry{value: value, expiresAt: s.now().Add(ttl)})
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Len reports the number of entries currently held, expired ones included.
func (s *MemoryStore) Len() int {
	return s.client.Size()
}

// Close is a no-op; the store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}
