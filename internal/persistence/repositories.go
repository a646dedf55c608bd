package persistence

import "context"

// SessionFilter narrows session queries. Zero values match everything.
type SessionFilter struct {
	// From and To bound the session date inclusively.
	From string
	To   string
	// TeacherID matches either the planned or the substitute teacher.
	TeacherID        string
	ClassroomID      string
	ClassID          string
	Statuses         []string
	ExcludeCancelled bool
}

// SessionStore exposes session reads and writes against one connection or transaction.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, session Session) error
	AppendEvent(ctx context.Context, event SessionEvent) error
	ListEvents(ctx context.Context, sessionID string) ([]SessionEvent, error)
}

// SessionRepository is a SessionStore that can run a unit of work atomically.
// The store passed to fn is only valid until fn returns.
type SessionRepository interface {
	SessionStore
	InTransaction(ctx context.Context, fn func(store SessionStore) error) error
}

// HolidayRepository stores the holiday calendar.
type HolidayRepository interface {
	ListHolidays(ctx context.Context, from, to string) ([]Holiday, error)
	UpsertHoliday(ctx context.Context, holiday Holiday) error
	DeleteHoliday(ctx context.Context, date string) error
}
