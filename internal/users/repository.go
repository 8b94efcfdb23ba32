package users

import (
	"context"

	"github.com/goliatone/go-commerce-backend/cache"
	"github.com/goliatone/go-commerce-backend/repositorycache"
)

// Repository is the user repository: the generic cached repository plus
// lookups on the unique username and email columns.
type Repository struct {
	*repositorycache.Repository[User]
}

// NewRepository creates a Repository writing through store and caching into c.
func NewRepository(store repositorycache.Store[User], c cache.Store, opts ...repositorycache.Option) *Repository {
	return &Repository{Repository: repositorycache.New(store, c, opts...)}
}

// FindByUsername returns the user with username, cache-first when cm is set.
func (r *Repository) FindByUsername(ctx context.Context, username string, cm *cache.Model) repositorycache.Result[User] {
	return r.FindEntityBy(ctx, "username", username, cm)
}

// FindByEmail returns the user with email, cache-first when cm is set.
func (r *Repository) FindByEmail(ctx context.Context, email string, cm *cache.Model) repositorycache.Result[User] {
	return r.FindEntityBy(ctx, "email", email, cm)
}
