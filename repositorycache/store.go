package repositorycache

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Store is the backing relational store contract a Repository writes through.
// FindByID and FindOne must return an error matching ErrNotFound (or
// sql.ErrNoRows) when nothing matches.
type Store[T any] interface {
	Save(ctx context.Context, record T) (T, error)
	FindByID(ctx context.Context, id int64) (T, error)
	FindOne(ctx context.Context, criteria ...repository.SelectCriteria) (T, error)
	Update(ctx context.Context, id int64, values map[string]any) error
	Delete(ctx context.Context, id int64) (int64, error)
	FindAll(ctx context.Context) ([]T, error)
	FindAndCount(ctx context.Context, skip, take int) ([]T, int, error)
}

// Page is a window of records plus the total number of matching records.
type Page[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// Where returns a criteria matching rows whose column equals value.
func Where(column string, value any) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	}
}
