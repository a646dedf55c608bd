package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/class-scheduler/internal/persistence"
)

// HolidayRepository implements persistence.HolidayRepository using SQLite
type HolidayRepository struct {
	pool *ConnectionPool
}

// NewHolidayRepository creates a new SQLite holiday repository
func NewHolidayRepository(pool *ConnectionPool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

// ListHolidays returns holidays between from and to inclusive, ordered by date.
// Empty bounds are open.
func (r *HolidayRepository) ListHolidays(ctx context.Context, from, to string) ([]persistence.Holiday, error) {
	query := `SELECT holiday_date, name, created_at FROM holidays WHERE 1 = 1`
	var args []any
	if from != "" {
		query += ` AND holiday_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND holiday_date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY holiday_date ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var holidays []persistence.Holiday
	for rows.Next() {
		var h persistence.Holiday
		var createdAt string
		if err := rows.Scan(&h.Date, &h.Name, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if h.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return holidays, nil
}

// UpsertHoliday stores a holiday, renaming it when the date already exists
func (r *HolidayRepository) UpsertHoliday(ctx context.Context, holiday persistence.Holiday) error {
	if holiday.Date == "" {
		return persistence.ErrConstraintViolation
	}
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO holidays (holiday_date, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (holiday_date) DO UPDATE SET name = excluded.name`,
		holiday.Date, holiday.Name, formatTimestamp(holiday.CreatedAt))
	return mapError(err)
}

// DeleteHoliday removes the holiday on date
func (r *HolidayRepository) DeleteHoliday(ctx context.Context, date string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM holidays WHERE holiday_date = ?`, date)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
