package persistence

import "time"

// Session is a stored class session. Dates use the 2006-01-02 layout and
// times the 15:04 layout so rows sort lexically.
type Session struct {
	ID              string
	BatchID         *string
	ClassID         string
	CourseID        string
	TeacherID       string
	ClassroomID     *string
	Date            string
	StartTime       string
	EndTime         string
	Status          string
	ActualTeacherID *string
	CancelReason    string
	Remark          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionEvent is an append-only audit record of a session mutation.
type SessionEvent struct {
	ID         string
	SessionID  string
	Operation  string
	FromStatus string
	ToStatus   string
	Reason     string
	OccurredAt time.Time
}

// Holiday is a named non-working day.
type Holiday struct {
	Date      string
	Name      string
	CreatedAt time.Time
}
