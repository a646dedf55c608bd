package application

import (
	"time"

	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

// Event operation recorded when a batch commit stores a session.
const OperationCreate = "create"

// Session is a persisted class session with its bookkeeping fields.
type Session struct {
	scheduler.Session
	// BatchID identifies the commit that created the session.
	BatchID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionEvent is one entry in a session's audit trail.
type SessionEvent struct {
	ID         string
	SessionID  string
	Operation  string
	FromStatus scheduler.Status
	ToStatus   scheduler.Status
	Reason     string
	OccurredAt time.Time
}

// SessionQuery narrows session listings. Zero values match everything.
type SessionQuery struct {
	From recurrence.Date
	To   recurrence.Date
	// TeacherID matches either the planned or the substitute teacher.
	TeacherID        string
	ClassroomID      string
	ClassID          string
	Statuses         []scheduler.Status
	ExcludeCancelled bool
}

// BatchInput captures caller provided batch fields. Holidays are resolved by
// the service when the rule skips them.
type BatchInput struct {
	Rule        recurrence.Rule
	Slots       []recurrence.TimeSlot
	TeacherID   string
	ClassroomID *string
	ClassID     string
	CourseID    string
}

// CommitBatchParams wraps a reviewed batch and the digest of the plan the
// caller accepted.
type CommitBatchParams struct {
	Input  BatchInput
	Digest string
	Reason string
}

// BatchCommit reports the sessions stored by a commit.
type BatchCommit struct {
	BatchID  string
	Digest   string
	Sessions []Session
}

// RescheduleParams wraps the data required to move a session.
type RescheduleParams struct {
	SessionID   string
	Date        recurrence.Date
	Slot        recurrence.TimeSlot
	TeacherID   *string
	ClassroomID *string
	Reason      string
}

// SubstituteParams wraps the data required to assign a substitute teacher.
type SubstituteParams struct {
	SessionID           string
	SubstituteTeacherID string
	Reason              string
}

// CancelParams wraps the data required to cancel a session.
type CancelParams struct {
	SessionID string
	Reason    string
}
