package service

import (
	"context"

	"github.com/goliatone/go-commerce-backend/cache"
	"github.com/goliatone/go-commerce-backend/repositorycache"
	"go.uber.org/zap"
)

// CRUD is the repository contract a Service forwards to.
// *repositorycache.Repository[T] satisfies it.
type CRUD[T any] interface {
	CreateEntity(ctx context.Context, record T, cm *cache.Model) repositorycache.Result[T]
	FindEntityByID(ctx context.Context, id int64, cm *cache.Model) repositorycache.Result[T]
	UpdateEntity(ctx context.Context, id int64, values map[string]any, cm *cache.Model) repositorycache.Result[T]
	DeleteEntity(ctx context.Context, id int64, cm *cache.Model) repositorycache.Result[bool]
	GetAllEntities(ctx context.Context, cm *cache.Model) repositorycache.Result[[]T]
	GetEntitiesWithPagination(ctx context.Context, skip, take int, cm *cache.Model) repositorycache.Result[repositorycache.Page[T]]
}

var _ CRUD[struct{}] = (*repositorycache.Repository[struct{}])(nil)

// Service is the orchestration seam over a CRUD repository. Every call is
// logged and forwarded with the same cache model; results, including
// failures, are returned exactly as the repository produced them.
//
// Domain services embed a Service to inherit CRUD plumbing.
type Service[T any] struct {
	repo   CRUD[T]
	logger *zap.Logger
}

// New creates a Service over repo. A nil logger disables logging.
func New[T any](repo CRUD[T], logger *zap.Logger) *Service[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service[T]{
		repo:   repo,
		logger: logger.With(zap.String("entity", cache.Namespace[T]())),
	}
}

// Repository returns the wrapped repository.
func (s *Service[T]) Repository() CRUD[T] {
	return s.repo
}

// Logger returns the service logger.
func (s *Service[T]) Logger() *zap.Logger {
	return s.logger
}

// Create persists record through the repository.
func (s *Service[T]) Create(ctx context.Context, record T, cm *cache.Model) repositorycache.Result[T] {
	s.logger.Info("creating entity", cacheKey(cm))
	return s.repo.CreateEntity(ctx, record, cm)
}

// FindByID looks up the record with id.
func (s *Service[T]) FindByID(ctx context.Context, id int64, cm *cache.Model) repositorycache.Result[T] {
	s.logger.Info("finding entity", zap.Int64("id", id), cacheKey(cm))
	return s.repo.FindEntityByID(ctx, id, cm)
}

// Update applies values to the record with id.
func (s *Service[T]) Update(ctx context.Context, id int64, values map[string]any, cm *cache.Model) repositorycache.Result[T] {
	s.logger.Info("updating entity", zap.Int64("id", id), zap.Int("fields", len(values)), cacheKey(cm))
	return s.repo.UpdateEntity(ctx, id, values, cm)
}

// Delete removes the record with id.
func (s *Service[T]) Delete(ctx context.Context, id int64, cm *cache.Model) repositorycache.Result[bool] {
	s.logger.Info("deleting entity", zap.Int64("id", id), cacheKey(cm))
	return s.repo.DeleteEntity(ctx, id, cm)
}

// GetAll lists every record.
func (s *Service[T]) GetAll(ctx context.Context, cm *cache.Model) repositorycache.Result[[]T] {
	s.logger.Info("listing entities", cacheKey(cm))
	return s.repo.GetAllEntities(ctx, cm)
}

// GetPage returns take records starting at skip, with the total count.
func (s *Service[T]) GetPage(ctx context.Context, skip, take int, cm *cache.Model) repositorycache.Result[repositorycache.Page[T]] {
	s.logger.Info("paginating entities", zap.Int("skip", skip), zap.Int("take", take), cacheKey(cm))
	return s.repo.GetEntitiesWithPagination(ctx, skip, take, cm)
}

func cacheKey(cm *cache.Model) zap.Field {
	if cm == nil {
		return zap.Skip()
	}
	return zap.String("cache_key", cm.Key)
}
