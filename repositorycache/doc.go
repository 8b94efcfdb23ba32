// Package repositorycache provides a generic, cache-augmented repository over a
// bun-backed relational store.
//
// # Overview
//
// Repository[T] exposes CRUD operations for a single entity type. Every
// operation takes an optional *cache.Model describing the cache key and TTL to
// use for that call. A nil model bypasses the cache completely: no Get, Set or
// Delete is issued against the cache store.
//
// # Basic Usage
//
//	store := storage.NewStore[User](db)
//	users := repositorycache.New[User](store, cacheConn, repositorycache.WithLogger(logger))
//
//	res := users.FindEntityByID(ctx, 42, cache.NewModel("user:42", time.Hour))
//	switch {
//	case res.OK():
//		use(res.Value)
//	case res.NotFound():
//		// absent
//	default:
//		// res.Err holds the cause
//	}
//
// # Results
//
// Operations never return a bare error. Failures are logged and folded into a
// Result carrying one of StatusOK, StatusNotFound or StatusFailed, the cause,
// and whether the value came from the cache. Result.Get converts back into the
// conventional (value, error) pair with ErrNotFound for absent records.
//
// # Caching Behavior
//
//   - CreateEntity: persists, then caches a snapshot if the key is absent.
//     By default the snapshot is the input record, not the persisted one; use
//     WithCreateSnapshot(SnapshotPersisted) to cache what the store returned.
//   - FindEntityByID, FindEntityBy, GetAllEntities: cache first, a hit is
//     returned without checking the store; a miss is read from the store and
//     written back.
//   - UpdateEntity: updates, re-reads the canonical row (never from cache) and
//     refreshes the key.
//   - DeleteEntity: requires at least one affected row, then evicts the key.
//   - GetEntitiesWithPagination: cache first, but a miss is not written back.
//
// Cached values may be stale for up to the model's TTL. There is no eviction
// policy beyond TTL.
//
// # Compensation
//
// When an update fails the repository looks the row up and, if it still
// exists, deletes it. The row is treated as corrupted rather than left in a
// partially updated state. Callers must assume a failed update can remove the
// record.
//
// # See Also
//
// For the cache store and key helpers, see the cache package.
// For the bun implementation of Store, see internal/storage.
package repositorycache
