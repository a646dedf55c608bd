package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/class-scheduler/internal/persistence/sqlite/migration"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := Open(migration.TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "scheduler.db")), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := storage.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return storage
}

func TestStorage_Migrate(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate must be idempotent: %v", err)
	}

	status, err := storage.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus: %v", err)
	}
	if status.CurrentVersion != "003" || status.PendingCount != 0 {
		t.Fatalf("unexpected migration status: %+v", status)
	}
	if err := storage.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
