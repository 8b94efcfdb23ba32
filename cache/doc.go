// Package cache provides the key-value facade, cache directives and key helpers
// shared by the repository and service layers.
//
// # Overview
//
// This package exports:
//
//   - Store: get/set/delete over a remote cache, keyed by string with a
//     per-entry TTL. Backend errors propagate to the caller untouched.
//   - Conn: a Store holding the process-wide connection, created once at
//     start-up with Open and injected into dependents.
//   - Model: the optional per-call directive (key + expiration) telling a
//     repository whether to consult the cache at all.
//   - Encode/Decode: msgpack serialization of cached snapshots.
//   - KeySerializer: builds stable keys such as "user:alice".
//
// # Start-up Ordering
//
// There is no lazily initialized package-level connection. Callers fetch
// configuration first, then open the connection, then build repositories:
//
//	conn, err := cache.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	users := repositorycache.New[User](store, conn)
//
// # Backends
//
// BackendRedis uses go-redis and is what deployed functions use.
// BackendMemory is an in-process sturdyc store used for local runs and tests;
// it honours per-entry TTLs up to Config.MaxTTL.
//
// # Key Serialization
//
// The default serializer joins a namespace and arguments with ":". Basic
// types are written verbatim, slices are comma-joined, maps are sorted by key
// and structs are rendered as snake_case field=value pairs. Segments longer
// than MaxSegmentLength are replaced by an xxhash digest.
//
// Function and channel arguments are rendered by address and are only stable
// within a single process; do not use them in keys shared across functions.
package cache
