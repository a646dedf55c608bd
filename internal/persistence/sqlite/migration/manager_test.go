package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSource() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_courses.sql": {Data: []byte("CREATE TABLE courses (id TEXT PRIMARY KEY);")},
		"migrations/002_create_lessons.sql": {Data: []byte(`
			CREATE TABLE lessons (id TEXT PRIMARY KEY, course_id TEXT NOT NULL REFERENCES courses (id));
			CREATE INDEX idx_lessons_course ON lessons (course_id);
		`)},
	}
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), testSource(), "migrations", nil)

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 || len(status.AppliedMigrations) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.AppliedMigrations[0].Checksum == "" {
		t.Fatalf("expected checksum to be recorded")
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO courses (id) VALUES ('c-1')`); err != nil {
		t.Fatalf("expected migrated table, got %v", err)
	}

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second run must be a no-op, got %v", err)
	}
}

func TestMigrationManager_FailedMigrationRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	source := testSource()
	source["migrations/003_broken.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE broken (id TEXT PRIMARY KEY); INSERT INTO missing_table VALUES (1);")}

	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), source, "migrations", nil)
	err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var name string
	if err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE name = 'broken'`).Scan(&name); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected broken migration to be rolled back, got %v (%q)", err, name)
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 1 {
		t.Fatalf("unexpected status after failure: %+v", status)
	}
}

func TestMigrationManager_SequenceAndChecksum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("gap in versions", func(t *testing.T) {
		t.Parallel()

		source := fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"migrations/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(openTestDB(t)), source, "migrations", nil)
		if err := manager.RunMigrations(ctx); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("edited migration detected", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		source := testSource()
		if err := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), source, "migrations", nil).RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations: %v", err)
		}

		source["migrations/001_create_courses.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE courses (id TEXT PRIMARY KEY, name TEXT);")}
		verifying := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), source, "migrations", nil, WithChecksumVerification())
		if err := verifying.RunMigrations(ctx); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}

		lenient := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), source, "migrations", nil)
		if err := lenient.RunMigrations(ctx); err != nil {
			t.Fatalf("expected checksum drift to be ignored without verification, got %v", err)
		}
	})
}

func TestSQLiteConfig_DSN(t *testing.T) {
	t.Parallel()

	dsn := TempFileTestSQLiteConfig("/tmp/x.db").DSN()
	for _, want := range []string{"file:/tmp/x.db?", "foreign_keys%281%29", "busy_timeout%285000%29"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %q in %q", want, dsn)
		}
	}

}
