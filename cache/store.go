package cache

import (
	"context"
	"time"
)

// Store is the key-value facade over the cache backend. Values are opaque
// serialized snapshots. Errors raised by the backend (connection refused,
// timeouts) are returned untouched so callers decide what a failure means.
type Store interface {
	// Get returns the value stored under key. found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Conn is a Store backed by a process-wide connection that must be closed
// on shutdown.
type Conn interface {
	Store
	Close() error
}

// Model describes whether and how a repository call consults the cache.
// A nil *Model means the call goes straight to the backing store.
type Model struct {
	Key        string
	Expiration time.Duration
}

// NewModel returns a Model for key with the given expiration.
func NewModel(key string, expiration time.Duration) *Model {
	return &Model{Key: key, Expiration: expiration}
}
