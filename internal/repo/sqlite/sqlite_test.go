package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/micropost/internal/repo/sqlite"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{DatabasePath: filepath.Join(t.TempDir(), "nested", "dir", "test.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var foreignKeys int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("query pragma: %v", err)
	}

	if foreignKeys != 1 {
		t.Errorf("foreign_keys = %d, want 1", foreignKeys)
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (k TEXT UNIQUE)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO t VALUES ('a')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = db.ExecContext(ctx, "INSERT INTO t VALUES ('a')")
	if !sqlite.IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false", err)
	}

	if sqlite.IsUniqueViolation(errors.New("other")) {
		t.Error("IsUniqueViolation(other) = true")
	}
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC)

	if got := sqlite.Time(sqlite.Timestamp(want)); !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("Time(Timestamp(%v)) = %v", want, got)
	}
}
