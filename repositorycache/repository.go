package repositorycache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-commerce-backend/cache"
	repository "github.com/goliatone/go-repository-bun"
	"go.uber.org/zap"
)

// CreateSnapshot selects which version of a created record is written to the
// cache by CreateEntity.
type CreateSnapshot int

const (
	// SnapshotInput caches the record as passed to CreateEntity. Fields the
	// backing store assigns on insert (identifiers, defaults) are missing
	// from the cached copy until the key expires.
	SnapshotInput CreateSnapshot = iota
	// SnapshotPersisted caches the record returned by the backing store.
	SnapshotPersisted
)

type options struct {
	logger   *zap.Logger
	snapshot CreateSnapshot
	name     string
}

// Option configures a Repository.
type Option func(*options)

// WithLogger sets the logger used to report misses and failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCreateSnapshot chooses the snapshot CreateEntity caches.
// The default is SnapshotInput.
func WithCreateSnapshot(s CreateSnapshot) Option {
	return func(o *options) { o.snapshot = s }
}

// WithName overrides the entity name used in log fields.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Repository provides CRUD over a single entity type against a backing store,
// with each operation optionally cache-augmented through a *cache.Model.
// Failures never escape as errors: they are logged and reported through
// Result.
type Repository[T any] struct {
	store    Store[T]
	cache    cache.Store
	logger   *zap.Logger
	snapshot CreateSnapshot
}

// New creates a Repository writing through store and caching into c.
func New[T any](store Store[T], c cache.Store, opts ...Option) *Repository[T] {
	o := options{logger: zap.NewNop(), name: cache.Namespace[T]()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{
		store:    store,
		cache:    c,
		logger:   o.logger.With(zap.String("entity", o.name)),
		snapshot: o.snapshot,
	}
}

// CreateEntity persists record. When cm is given and its key is absent from
// the cache, the configured snapshot is cached under it. A cache failure after
// the insert yields a failed result with Persisted set and the stored record
// as Value.
func (r *Repository[T]) CreateEntity(ctx context.Context, record T, cm *cache.Model) Result[T] {
	saved, err := r.store.Save(ctx, record)
	if err != nil {
		r.logger.Error("create failed", zap.Error(err))
		return failed[T](err)
	}

	if cm != nil {
		_, found, err := r.cache.Get(ctx, cm.Key)
		if err != nil {
			r.logger.Error("create: cache lookup failed after insert", zap.String("key", cm.Key), zap.Error(err))
			return committed(saved, err)
		}
		if !found {
			snap := record
			if r.snapshot == SnapshotPersisted {
				snap = saved
			}
			if err := r.put(ctx, cm, snap); err != nil {
				r.logger.Error("create: cache write failed after insert", zap.String("key", cm.Key), zap.Error(err))
				return committed(saved, err)
			}
		}
	}

	return written(saved)
}

// FindEntityByID returns the record with id. With cm, a cache hit is returned
// as is, without checking the backing store.
func (r *Repository[T]) FindEntityByID(ctx context.Context, id int64, cm *cache.Model) Result[T] {
	return r.lookup(ctx, zap.Int64("id", id), cm, func(ctx context.Context) (T, error) {
		return r.store.FindByID(ctx, id)
	})
}

// FindEntityBy returns the first record whose column equals value, with the
// same cache contract as FindEntityByID.
func (r *Repository[T]) FindEntityBy(ctx context.Context, column string, value any, cm *cache.Model) Result[T] {
	return r.FindEntityWhere(ctx, zap.Any(column, value), cm, Where(column, value))
}

// FindEntityWhere returns the first record matching all criteria. field
// identifies the lookup in logs.
func (r *Repository[T]) FindEntityWhere(ctx context.Context, field zap.Field, cm *cache.Model, criteria ...repository.SelectCriteria) Result[T] {
	return r.lookup(ctx, field, cm, func(ctx context.Context) (T, error) {
		return r.store.FindOne(ctx, criteria...)
	})
}

func (r *Repository[T]) lookup(ctx context.Context, field zap.Field, cm *cache.Model, fetch func(context.Context) (T, error)) Result[T] {
	if cm != nil {
		cached, found, err := r.getCached(ctx, cm)
		if err != nil {
			r.logger.Error("find: cache lookup failed", field, zap.String("key", cm.Key), zap.Error(err))
			return failed[T](err)
		}
		if found {
			return hit(cached)
		}
	}

	record, err := fetch(ctx)
	if err != nil {
		if isNotFound(err) {
			r.logger.Warn("record not found", field)
			return notFound[T](err)
		}
		r.logger.Error("find failed", field, zap.Error(err))
		return failed[T](err)
	}

	if cm != nil {
		if err := r.put(ctx, cm, record); err != nil {
			r.logger.Error("find: cache write failed", field, zap.String("key", cm.Key), zap.Error(err))
			return failed[T](err)
		}
	}

	return ok(record)
}

// UpdateEntity applies values to the record with id and returns its canonical
// post-update state, read back from the backing store. With cm the cache key
// is refreshed with that state.
//
// If the update itself fails the record is treated as corrupted: when it can
// still be found it is deleted as a compensating action. A failed update can
// therefore destroy the row.
func (r *Repository[T]) UpdateEntity(ctx context.Context, id int64, values map[string]any, cm *cache.Model) Result[T] {
	if err := r.store.Update(ctx, id, values); err != nil {
		r.logger.Error("update failed", zap.Int64("id", id), zap.Error(err))
		r.rollbackUpdate(ctx, id)
		return failed[T](err)
	}

	record, err := r.store.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			r.logger.Warn("record not found after update", zap.Int64("id", id))
			return notFound[T](err)
		}
		r.logger.Error("update: read back failed", zap.Int64("id", id), zap.Error(err))
		return failed[T](err)
	}

	if cm != nil {
		if err := r.put(ctx, cm, record); err != nil {
			r.logger.Error("update: cache write failed", zap.Int64("id", id), zap.String("key", cm.Key), zap.Error(err))
			return committed(record, err)
		}
	}

	return written(record)
}

func (r *Repository[T]) rollbackUpdate(ctx context.Context, id int64) {
	if _, err := r.store.FindByID(ctx, id); err != nil {
		if !isNotFound(err) {
			r.logger.Error("update rollback: lookup failed", zap.Int64("id", id), zap.Error(err))
		}
		return
	}
	if _, err := r.store.Delete(ctx, id); err != nil {
		r.logger.Error("update rollback: delete failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	r.logger.Warn("update rolled back, record deleted", zap.Int64("id", id))
}

// DeleteEntity removes the record with id. A delete that affects no rows is
// reported as not found and leaves the cache untouched; a successful delete
// evicts cm's key.
func (r *Repository[T]) DeleteEntity(ctx context.Context, id int64, cm *cache.Model) Result[bool] {
	affected, err := r.store.Delete(ctx, id)
	if err != nil {
		r.logger.Error("delete failed", zap.Int64("id", id), zap.Error(err))
		return failed[bool](err)
	}
	if affected < 1 {
		r.logger.Warn("delete: record not found", zap.Int64("id", id))
		return notFound[bool](nil)
	}

	if cm != nil {
		if err := r.cache.Delete(ctx, cm.Key); err != nil {
			r.logger.Error("delete: cache eviction failed", zap.Int64("id", id), zap.String("key", cm.Key), zap.Error(err))
			return committed(true, err)
		}
	}

	return written(true)
}

// GetAllEntities returns every record. With cm a cached snapshot is returned
// verbatim when present, otherwise the result is cached.
func (r *Repository[T]) GetAllEntities(ctx context.Context, cm *cache.Model) Result[[]T] {
	if cm != nil {
		cached, found, err := getCached[[]T](ctx, r.cache, cm)
		if err != nil {
			r.logger.Error("list: cache lookup failed", zap.String("key", cm.Key), zap.Error(err))
			return failed[[]T](err)
		}
		if found {
			return hit(cached)
		}
	}

	records, err := r.store.FindAll(ctx)
	if err != nil {
		r.logger.Error("list failed", zap.Error(err))
		return failed[[]T](err)
	}

	if cm != nil {
		if err := r.put(ctx, cm, records); err != nil {
			r.logger.Error("list: cache write failed", zap.String("key", cm.Key), zap.Error(err))
			return failed[[]T](err)
		}
	}

	return ok(records)
}

// GetEntitiesWithPagination returns up to take records starting at the
// zero-based offset skip, with the total count. With cm a cached page is
// returned when present; a miss is NOT written back to the cache.
func (r *Repository[T]) GetEntitiesWithPagination(ctx context.Context, skip, take int, cm *cache.Model) Result[Page[T]] {
	if cm != nil {
		cached, found, err := getCached[Page[T]](ctx, r.cache, cm)
		if err != nil {
			r.logger.Error("paginate: cache lookup failed", zap.String("key", cm.Key), zap.Error(err))
			return failed[Page[T]](err)
		}
		if found {
			return hit(cached)
		}
	}

	records, count, err := r.store.FindAndCount(ctx, skip, take)
	if err != nil {
		r.logger.Error("paginate failed", zap.Int("skip", skip), zap.Int("take", take), zap.Error(err))
		return failed[Page[T]](err)
	}

	return ok(Page[T]{Data: records, Count: count})
}

func (r *Repository[T]) getCached(ctx context.Context, cm *cache.Model) (T, bool, error) {
	return getCached[T](ctx, r.cache, cm)
}

func getCached[V any](ctx context.Context, c cache.Store, cm *cache.Model) (V, bool, error) {
	var zero V
	raw, found, err := c.Get(ctx, cm.Key)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := cache.Decode[V](raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (r *Repository[T]) put(ctx context.Context, cm *cache.Model, v any) error {
	encoded, err := cache.Encode(v)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, cm.Key, encoded, cm.Expiration)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
