package scheduler

import (
	"github.com/example/class-scheduler/internal/recurrence"
)

// Status is the lifecycle state of a class session.
type Status string

const (
	// StatusScheduled is assigned when a batch draft is accepted.
	StatusScheduled Status = "scheduled"
	// StatusCompleted is set by the attendance process and is terminal.
	StatusCompleted Status = "completed"
	// StatusCancelled is terminal; cancelled sessions hold no resources.
	StatusCancelled Status = "cancelled"
	// StatusRescheduled marks a session whose time or resources changed. It
	// remains active.
	StatusRescheduled Status = "rescheduled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle operation is legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Session is one concrete, dated, timed occurrence of a class meeting.
type Session struct {
	ID              string
	ClassID         string
	CourseID        string
	TeacherID       string
	ClassroomID     *string
	Date            recurrence.Date
	Slot            recurrence.TimeSlot
	Status          Status
	ActualTeacherID *string
	CancelReason    string
	Remark          string
}

// EffectiveTeacherID returns the substitute when one is assigned.
func (s Session) EffectiveTeacherID() string {
	if s.ActualTeacherID != nil && *s.ActualTeacherID != "" {
		return *s.ActualTeacherID
	}
	return s.TeacherID
}

// Draft returns the candidate view of the session used for conflict detection.
func (s Session) Draft() Draft {
	return Draft{
		ID:          s.ID,
		ClassID:     s.ClassID,
		CourseID:    s.CourseID,
		TeacherID:   s.EffectiveTeacherID(),
		ClassroomID: cloneString(s.ClassroomID),
		Date:        s.Date,
		Slot:        s.Slot,
	}
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.ClassroomID = cloneString(s.ClassroomID)
	out.ActualTeacherID = cloneString(s.ActualTeacherID)
	return out
}

// Draft is a candidate session that has not been validated or persisted.
type Draft struct {
	// ID is set when the draft represents an already persisted session.
	ID          string
	ClassID     string
	CourseID    string
	TeacherID   string
	ClassroomID *string
	Date        recurrence.Date
	Slot        recurrence.TimeSlot
	// Sequence is the 1-based date index within a batch, zero otherwise.
	Sequence int
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func excludeSession(existing []Session, id string) []Session {
	if id == "" {
		return existing
	}
	out := make([]Session, 0, len(existing))
	for _, sess := range existing {
		if sess.ID == id {
			continue
		}
		out = append(out, sess)
	}
	return out
}
