package cacheinfra

import "time"

// RedisConfig holds the options used to open the shared Redis connection.
type RedisConfig struct {
	// Addr is the host:port of the Redis endpoint. Required.
	Addr string

	Username string
	Password string
	DB       int

	// Prefix namespaces every key written through the store.
	Prefix string

	// TLS enables an encrypted connection, required by managed Redis
	// offerings with in-transit encryption.
	TLS bool

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// QueryTimeout bounds each Get/Set/Delete round trip.
	QueryTimeout time.Duration
}

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// MaxTTL caps how long any entry can live regardless of the TTL given
	// to Set.
	MaxTTL time.Duration
}

// DefaultRedisConfig returns a RedisConfig with defaults for local development.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		QueryTimeout: 5 * time.Second,
	}
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		EvictionPercentage: 10,
		MaxTTL:             24 * time.Hour,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "is required"}
	}
	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.DialTimeout < 0 {
		return &ConfigError{Field: "DialTimeout", Message: "must be non-negative"}
	}
	if c.QueryTimeout < 0 {
		return &ConfigError{Field: "QueryTimeout", Message: "must be non-negative"}
	}
	return nil
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
