package cacheinfra

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the cache key-value facade on top of a go-redis client.
type RedisStore struct {
	client       *redis.Client
	prefix       string
	queryTimeout time.Duration
	owned        bool
}

// ConnectRedis opens the process-wide Redis connection described by cfg and
// verifies it with a PING. The returned store owns the client; Close releases it.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cacheinfra: redis ping %s: %w", cfg.Addr, err)
	}

	store := NewRedisStore(client, cfg.Prefix, cfg.QueryTimeout)
	store.owned = true
	return store, nil
}

// NewRedisStore wraps an existing client. The caller owns the client
// lifecycle and Close is a no-op.
func NewRedisStore(client *redis.Client, prefix string, queryTimeout time.Duration) *RedisStore {
	return &RedisStore{
		client:       client,
		prefix:       prefix,
		queryTimeout: queryTimeout,
	}
}

func (s *RedisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *RedisStore) prefixKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get returns the raw value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	val, err := s.client.Get(qctx, s.prefixKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key. A non-positive ttl stores the key without expiration.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return s.client.Set(qctx, s.prefixKey(key), value, ttl).Err()
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return s.client.Del(qctx, s.prefixKey(key)).Err()
}

// Close releases the client when the store opened it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
