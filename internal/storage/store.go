package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/goliatone/go-commerce-backend/repositorycache"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultIDColumn is the primary key column used when none is configured.
const DefaultIDColumn = "id"

// Store implements repositorycache.Store for a bun model T on top of a
// go-repository-bun repository. T must be a struct type registered with bun
// (bun.BaseModel embedded) with an integer primary key.
type Store[T any] struct {
	db       *bun.DB
	repo     repository.Repository[*T]
	driver   string
	idColumn string
}

var _ repositorycache.Store[struct{}] = (*Store[struct{}])(nil)

// NewStore creates a Store over db using the "id" primary key column.
func NewStore[T any](db *bun.DB) *Store[T] {
	return &Store[T]{
		db:       db,
		repo:     repository.NewRepository[*T](db, handlers[T]()),
		driver:   repository.DetectDriver(db),
		idColumn: DefaultIDColumn,
	}
}

// handlers adapts T to the uuid-keyed model handlers. Integer keys are
// assigned by the database, so the generated uuid is discarded.
func handlers[T any]() repository.ModelHandlers[*T] {
	return repository.ModelHandlers[*T]{
		NewRecord:     func() *T { return new(T) },
		GetID:         func(*T) uuid.UUID { return uuid.Nil },
		SetID:         func(*T, uuid.UUID) {},
		GetIdentifier: func() string { return DefaultIDColumn },
	}
}

// WithIDColumn returns a copy of the store keyed on column.
func (s *Store[T]) WithIDColumn(column string) *Store[T] {
	cp := *s
	cp.idColumn = column
	return &cp
}

// Save inserts record and returns it as stored, including generated columns.
func (s *Store[T]) Save(ctx context.Context, record T) (T, error) {
	saved, err := s.repo.Create(ctx, &record)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("storage: insert: %w", repository.MapDatabaseError(err, s.driver))
	}
	return *saved, nil
}

// FindByID returns the row with the given primary key.
func (s *Store[T]) FindByID(ctx context.Context, id int64) (T, error) {
	return s.FindOne(ctx, repositorycache.Where(s.idColumn, id))
}

// FindOne returns the first row matching criteria.
func (s *Store[T]) FindOne(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	record, err := s.repo.Get(ctx, criteria...)
	if err != nil {
		var zero T
		return zero, wrapNotFound(err)
	}
	return *record, nil
}

// Update sets the given columns on the row with id. Columns are applied in
// sorted order so generated SQL is deterministic.
func (s *Store[T]) Update(ctx context.Context, id int64, values map[string]any) error {
	if len(values) == 0 {
		return errors.New("storage: update: no values")
	}

	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	q := s.db.NewUpdate().Model((*T)(nil))
	for _, column := range columns {
		q = q.Set("? = ?", bun.Ident(column), values[column])
	}
	if _, err := q.Where("? = ?", bun.Ident(s.idColumn), id).Exec(ctx); err != nil {
		return fmt.Errorf("storage: update: %w", repository.MapDatabaseError(err, s.driver))
	}
	return nil
}

// Delete removes the row with id and reports the number of affected rows.
func (s *Store[T]) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(s.idColumn), id).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: delete: %w", repository.MapDatabaseError(err, s.driver))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: delete: %w", err)
	}
	return affected, nil
}

// FindAll returns every row ordered by primary key.
func (s *Store[T]) FindAll(ctx context.Context) ([]T, error) {
	records, _, err := s.list(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("storage: select: %w", err)
	}
	return records, nil
}

// FindAndCount returns up to take rows starting at the zero-based offset skip,
// plus the total number of rows. A non-positive take returns every row from
// skip onwards.
func (s *Store[T]) FindAndCount(ctx context.Context, skip, take int) ([]T, int, error) {
	if skip < 0 {
		skip = 0
	}
	limit := take
	if limit <= 0 && skip > 0 {
		// OFFSET needs a LIMIT on sqlite; bun only emits positive limits.
		limit = math.MaxInt32
	} else if limit < 0 {
		limit = 0
	}
	records, count, err := s.list(ctx, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: select and count: %w", err)
	}
	return records, count, nil
}

func (s *Store[T]) list(ctx context.Context, limit, offset int) ([]T, int, error) {
	rows, count, err := s.repo.List(ctx,
		repository.SelectPaginate(limit, offset),
		repository.SelectOrderAsc(s.idColumn),
	)
	if err != nil {
		return nil, 0, err
	}
	records := make([]T, 0, len(rows))
	for _, row := range rows {
		records = append(records, *row)
	}
	return records, count, nil
}

func wrapNotFound(err error) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return fmt.Errorf("%w: %v", repositorycache.ErrNotFound, err)
	}
	return fmt.Errorf("storage: select: %w", err)
}
