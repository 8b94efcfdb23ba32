package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-commerce-backend/internal/cacheinfra"
)

// Backend names accepted by Config.Backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend string

	// Redis options
	Addr         string
	Username     string
	Password     string
	DB           int
	Prefix       string
	TLS          bool
	DialTimeout  time.Duration
	QueryTimeout time.Duration

	// in-process options
	Capacity           int
	NumShards          int
	EvictionPercentage int
	MaxTTL             time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	redis := cacheinfra.DefaultRedisConfig()
	memory := cacheinfra.DefaultMemoryConfig()
	return Config{
		Backend:            BackendRedis,
		Addr:               redis.Addr,
		DialTimeout:        redis.DialTimeout,
		QueryTimeout:       redis.QueryTimeout,
		Capacity:           memory.Capacity,
		NumShards:          memory.NumShards,
		EvictionPercentage: memory.EvictionPercentage,
		MaxTTL:             memory.MaxTTL,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendRedis:
		return c.redisConfig().Validate()
	case BackendMemory:
		return c.memoryConfig().Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
}

// Open establishes the process-wide cache connection. It is the explicit
// start-up step that must run after configuration has been fetched and
// before any repository is built; the returned Conn is injected into them.
func Open(ctx context.Context, cfg Config) (Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendMemory:
		return cacheinfra.NewMemoryStore(cfg.memoryConfig())
	default:
		return cacheinfra.ConnectRedis(ctx, cfg.redisConfig())
	}
}

func (c Config) redisConfig() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		Prefix:       c.Prefix,
		TLS:          c.TLS,
		DialTimeout:  c.DialTimeout,
		QueryTimeout: c.QueryTimeout,
	}
}

func (c Config) memoryConfig() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
		MaxTTL:             c.MaxTTL,
	}
}
