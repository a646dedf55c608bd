package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/persistence/sqlite/migration"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConnectionPool owns the scheduler database handle.
type ConnectionPool struct {
	db *sql.DB
}

// NewConnectionPool opens the database described by config.
func NewConnectionPool(config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.Open(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &ConnectionPool{db: db}, nil
}

// DB exposes the handle for migrations and read queries.
func (p *ConnectionPool) DB() *sql.DB { return p.db }

// Ping checks the database is reachable.
func (p *ConnectionPool) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Close releases every pooled connection.
func (p *ConnectionPool) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// inTx commits when fn succeeds and rolls back on error or panic.
func (p *ConnectionPool) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// constraintErrors maps driver messages to persistence sentinels. The
// modernc driver only exposes constraint kinds through the message text.
var constraintErrors = []struct {
	marker   string
	sentinel error
}{
	{"UNIQUE constraint failed", persistence.ErrDuplicate},
	{"PRIMARY KEY constraint failed", persistence.ErrDuplicate},
	{"FOREIGN KEY constraint failed", persistence.ErrForeignKeyViolation},
	{"CHECK constraint failed", persistence.ErrConstraintViolation},
	{"NOT NULL constraint failed", persistence.ErrConstraintViolation},
}

// mapError translates driver errors into persistence sentinels, keeping the
// driver message for the log.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	for _, c := range constraintErrors {
		if strings.Contains(msg, c.marker) {
			return fmt.Errorf("%w: %v", c.sentinel, err)
		}
	}
	return err
}

var busyMarkers = []string{"database is locked", "database table is locked", "SQLITE_BUSY", "database is busy"}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range busyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// BusyPolicy retries work that failed because another writer held the
// database lock. Delay doubles after every attempt up to MaxDelay.
type BusyPolicy struct {
	Retries  int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultBusyPolicy suits the scheduler's short write transactions.
func DefaultBusyPolicy() BusyPolicy {
	return BusyPolicy{Retries: 3, Delay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Do runs fn until it succeeds, fails with a non-busy error, ctx ends or the
// retries are used up.
func (p BusyPolicy) Do(ctx context.Context, fn func() error) error {
	delay := p.Delay
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); !isBusy(err) {
			return mapError(err)
		}
		if attempt == p.Retries {
			return fmt.Errorf("database still busy after %d retries: %w", p.Retries, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
