package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes v into the string form kept in the cache.
func Encode(v any) (string, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cache: failed to marshal value: %w", err)
	}
	return string(data), nil
}

// Decode deserializes a cached value produced by Encode.
func Decode[T any](value string) (T, error) {
	var out T
	if err := msgpack.Unmarshal([]byte(value), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("cache: failed to unmarshal value: %w", err)
	}
	return out, nil
}
