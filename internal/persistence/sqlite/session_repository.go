package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/class-scheduler/internal/persistence"
)

const sessionColumns = `id, batch_id, class_id, course_id, teacher_id, classroom_id, session_date, start_time, end_time,
	status, actual_teacher_id, cancel_reason, remark, created_at, updated_at`

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	sessionStore
	pool  *ConnectionPool
	retry BusyPolicy
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		sessionStore: sessionStore{q: pool.DB()},
		pool:         pool,
		retry:        DefaultBusyPolicy(),
	}
}

// InTransaction runs fn against a transaction-scoped store. The transaction
// is retried as a whole when SQLite reports it is busy, so fn must not keep
// state between attempts.
func (r *SessionRepository) InTransaction(ctx context.Context, fn func(store persistence.SessionStore) error) error {
	return r.retry.Do(ctx, func() error {
		return r.pool.inTx(ctx, func(tx *sql.Tx) error {
			return fn(&sessionStore{q: tx})
		})
	})
}

type sessionStore struct {
	q queryer
}

type rowScanner interface {
	Scan(dest ...any) error
}

// GetSession retrieves a session by ID
func (s *sessionStore) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// ListSessions lists sessions ordered by date, start time and ID
func (s *sessionStore) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	query, args := buildSessionListQuery(filter)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, mapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return sessions, nil
}

// CreateSession inserts a new session
func (s *sessionStore) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := s.q.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		nullString(session.BatchID),
		session.ClassID,
		session.CourseID,
		session.TeacherID,
		nullString(session.ClassroomID),
		session.Date,
		session.StartTime,
		session.EndTime,
		session.Status,
		nullString(session.ActualTeacherID),
		session.CancelReason,
		session.Remark,
		formatTimestamp(session.CreatedAt),
		formatTimestamp(session.UpdatedAt),
	)
	return mapError(err)
}

// UpdateSession replaces the mutable fields of an existing session
func (s *sessionStore) UpdateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrNotFound
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE sessions
		SET teacher_id = ?, classroom_id = ?, session_date = ?, start_time = ?, end_time = ?,
			status = ?, actual_teacher_id = ?, cancel_reason = ?, remark = ?, updated_at = ?
		WHERE id = ?`,
		session.TeacherID,
		nullString(session.ClassroomID),
		session.Date,
		session.StartTime,
		session.EndTime,
		session.Status,
		nullString(session.ActualTeacherID),
		session.CancelReason,
		session.Remark,
		formatTimestamp(session.UpdatedAt),
		session.ID,
	)
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

// AppendEvent records an audit event for a session
func (s *sessionStore) AppendEvent(ctx context.Context, event persistence.SessionEvent) error {
	if event.ID == "" || event.SessionID == "" {
		return persistence.ErrConstraintViolation
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO session_events (id, session_id, operation, from_status, to_status, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.SessionID,
		event.Operation,
		event.FromStatus,
		event.ToStatus,
		event.Reason,
		formatTimestamp(event.OccurredAt),
	)
	return mapError(err)
}

// ListEvents returns the audit trail of a session in the order it happened
func (s *sessionStore) ListEvents(ctx context.Context, sessionID string) ([]persistence.SessionEvent, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, session_id, operation, from_status, to_status, reason, occurred_at
		FROM session_events
		WHERE session_id = ?
		ORDER BY occurred_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.SessionEvent
	for rows.Next() {
		var event persistence.SessionEvent
		var occurredAt string
		if err := rows.Scan(&event.ID, &event.SessionID, &event.Operation, &event.FromStatus, &event.ToStatus, &event.Reason, &occurredAt); err != nil {
			return nil, mapError(err)
		}
		if event.OccurredAt, err = parseTimestamp(occurredAt); err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var batchID, classroomID, actualTeacherID sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&session.ID,
		&batchID,
		&session.ClassID,
		&session.CourseID,
		&session.TeacherID,
		&classroomID,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
		&session.Status,
		&actualTeacherID,
		&session.CancelReason,
		&session.Remark,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	session.BatchID = stringPtr(batchID)
	session.ClassroomID = stringPtr(classroomID)
	session.ActualTeacherID = stringPtr(actualTeacherID)

	if session.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}

func buildSessionListQuery(filter persistence.SessionFilter) (string, []any) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`

	var conditions []string
	var args []any

	if filter.From != "" {
		conditions = append(conditions, "session_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, "session_date <= ?")
		args = append(args, filter.To)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, "(teacher_id = ? OR actual_teacher_id = ?)")
		args = append(args, filter.TeacherID, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, "classroom_id = ?")
		args = append(args, filter.ClassroomID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, "class_id = ?")
		args = append(args, filter.ClassID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ExcludeCancelled {
		conditions = append(conditions, "status <> 'cancelled'")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY session_date ASC, start_time ASC, id ASC"

	return query, args
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(timestampLayout, value)
}
