package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/persistence/sqlite/migration"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, persistence.ErrNotFound},
		{"unique", errors.New("constraint failed: UNIQUE constraint failed: sessions.id (1555)"), persistence.ErrDuplicate},
		{"foreign key", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), persistence.ErrForeignKeyViolation},
		{"check", errors.New("constraint failed: CHECK constraint failed: start_time < end_time (275)"), persistence.ErrConstraintViolation},
	}
	for _, tt := range tests {
		if got := mapError(tt.err); !errors.Is(got, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	other := errors.New("disk I/O error")
	if got := mapError(other); got != other {
		t.Fatalf("expected unknown errors to pass through, got %v", got)
	}
	if mapError(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}

func TestBusyPolicy_Do(t *testing.T) {
	t.Parallel()

	policy := BusyPolicy{Retries: 2, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("retries busy errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		err := policy.Do(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil || attempts != 3 {
			t.Fatalf("expected success on third attempt, got %v after %d", err, attempts)
		}
	})

	t.Run("gives up after the last retry", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		err := policy.Do(context.Background(), func() error {
			attempts++
			return errors.New("database is locked")
		})
		if err == nil || attempts != 3 {
			t.Fatalf("expected failure after 3 attempts, got %v after %d", err, attempts)
		}
	})

	t.Run("maps other errors without retrying", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		err := policy.Do(context.Background(), func() error {
			attempts++
			return sql.ErrNoRows
		})
		if !errors.Is(err, persistence.ErrNotFound) || attempts != 1 {
			t.Fatalf("expected single mapped attempt, got %v after %d", err, attempts)
		}
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := BusyPolicy{Retries: 5, Delay: time.Hour}
		err := slow.Do(ctx, func() error { return errors.New("SQLITE_BUSY") })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestConnectionPool_InTx(t *testing.T) {
	t.Parallel()

	pool, err := NewConnectionPool(migration.TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "tx.db")))
	if err != nil {
		t.Fatalf("NewConnectionPool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE marks (n INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	count := func() int {
		var n int
		if err := pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM marks`).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}

	boom := errors.New("boom")
	err = pool.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO marks (n) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) || count() != 0 {
		t.Fatalf("expected rollback on error, got %v with %d rows", err, count())
	}

	func() {
		defer func() { _ = recover() }()
		_ = pool.inTx(ctx, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO marks (n) VALUES (2)`)
			panic("abort")
		})
	}()
	if count() != 0 {
		t.Fatalf("expected rollback on panic")
	}

	if err := pool.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO marks (n) VALUES (3)`)
		return err
	}); err != nil || count() != 1 {
		t.Fatalf("expected commit, got %v with %d rows", err, count())
	}
}
