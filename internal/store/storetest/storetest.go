// Package storetest provides a migrated SQLite-backed store for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"folio/api/internal/store"
)

func New(tb testing.TB, opts ...store.SQLOption) *store.SQLStore {
	tb.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.DialectSQLite, filepath.Join(tb.TempDir(), "folio.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(ctx, db, store.DialectSQLite, store.Migrations()); err != nil {
		tb.Fatalf("apply migrations: %v", err)
	}
	return store.NewSQLStore(db, store.DialectSQLite, opts...)
}
