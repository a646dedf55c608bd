package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/persistence/sqlite"
	"github.com/example/class-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated scheduler database in tb.TempDir, closed
// automatically when the test ends.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Sessions persistence.SessionRepository
	Holidays persistence.HolidayRepository
}

func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(filepath.Join(tb.TempDir(), "scheduler.db")), nil)
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate test database: %v", err)
	}
	return &SQLiteHarness{Storage: storage, Sessions: storage.Sessions, Holidays: storage.Holidays}
}

// SeedSessions inserts fixtures, bypassing the services.
func (h *SQLiteHarness) SeedSessions(tb testing.TB, fixtures ...SessionFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Sessions.CreateSession(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("seed session %s: %v", f.ID, err)
		}
	}
}

// SeedHolidays marks each date (YYYY-MM-DD) as a holiday named after itself.
func (h *SQLiteHarness) SeedHolidays(tb testing.TB, dates ...string) {
	tb.Helper()
	for _, date := range dates {
		day := persistence.Holiday{Date: date, Name: date, CreatedAt: ReferenceTime().Add(-time.Hour)}
		if err := h.Holidays.UpsertHoliday(context.Background(), day); err != nil {
			tb.Fatalf("seed holiday %s: %v", date, err)
		}
	}
}
