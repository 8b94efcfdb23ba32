package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// SQLiteDSN returns a DSN for a private in-memory database named after the test.
func SQLiteDSN(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// NewSQLiteDB opens an in-memory SQLite database private to the test, creates
// tables for models and closes the database on cleanup.
func NewSQLiteDB(t *testing.T, models ...any) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", SQLiteDSN(t))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// a shared in-memory database lives as long as one connection is open
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("failed to create table for %T: %v", model, err)
		}
	}

	return db
}
