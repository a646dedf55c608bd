package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

var sessionCounter uint64

var referenceTime = time.Date(2026, time.April, 6, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the baseline instant used by fixtures. It falls on a
// Monday at the start of a school term.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate is the calendar date of ReferenceTime.
func ReferenceDate() recurrence.Date {
	return recurrence.DateOf(referenceTime)
}

// Slot builds a time slot from hour and minute pairs.
func Slot(startHour, startMinute, endHour, endMinute int) recurrence.TimeSlot {
	return recurrence.TimeSlot{Start: recurrence.Clock(startHour, startMinute), End: recurrence.Clock(endHour, endMinute)}
}

// SessionFixture is a deterministic session that can be materialised for
// application or persistence tests.
type SessionFixture struct {
	application.Session
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a scheduled first-period session on the reference
// date with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	room := "room-101"
	fixture := SessionFixture{Session: application.Session{
		Session: scheduler.Session{
			ID:          fmt.Sprintf("session-%03d", idx),
			ClassID:     "class-1a",
			CourseID:    "course-math",
			TeacherID:   "teacher-1",
			ClassroomID: &room,
			Date:        ReferenceDate(),
			Slot:        Slot(9, 0, 10, 30),
			Status:      scheduler.StatusScheduled,
		},
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session identifier.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) { f.ID = id }
}

// WithTeacher overrides the planned teacher.
func WithTeacher(id string) SessionOption {
	return func(f *SessionFixture) { f.TeacherID = id }
}

// WithSubstitute assigns a substitute teacher.
func WithSubstitute(id string) SessionOption {
	return func(f *SessionFixture) { f.ActualTeacherID = &id }
}

// WithClass overrides the class.
func WithClass(id string) SessionOption {
	return func(f *SessionFixture) { f.ClassID = id }
}

// WithClassroom overrides the room; an empty id leaves the session without one.
func WithClassroom(id string) SessionOption {
	return func(f *SessionFixture) {
		if id == "" {
			f.ClassroomID = nil
			return
		}
		f.ClassroomID = &id
	}
}

// WithPlacement moves the session to date and slot.
func WithPlacement(date recurrence.Date, slot recurrence.TimeSlot) SessionOption {
	return func(f *SessionFixture) {
		f.Date = date
		f.Slot = slot
	}
}

// WithStatus overrides the lifecycle status.
func WithStatus(status scheduler.Status) SessionOption {
	return func(f *SessionFixture) { f.Status = status }
}

// WithBatch records the batch that created the session.
func WithBatch(id string) SessionOption {
	return func(f *SessionFixture) { f.BatchID = id }
}

// Application returns the fixture as an application session.
func (f SessionFixture) Application() application.Session {
	out := f.Session
	out.Session = f.Session.Session.Clone()
	return out
}

// Persistence returns the fixture as a stored row.
func (f SessionFixture) Persistence() persistence.Session {
	var batchID *string
	if f.BatchID != "" {
		id := f.BatchID
		batchID = &id
	}
	clone := f.Session.Session.Clone()
	return persistence.Session{
		ID:              clone.ID,
		BatchID:         batchID,
		ClassID:         clone.ClassID,
		CourseID:        clone.CourseID,
		TeacherID:       clone.TeacherID,
		ClassroomID:     clone.ClassroomID,
		Date:            clone.Date.String(),
		StartTime:       clone.Slot.Start.String(),
		EndTime:         clone.Slot.End.String(),
		Status:          string(clone.Status),
		ActualTeacherID: clone.ActualTeacherID,
		CancelReason:    clone.CancelReason,
		Remark:          clone.Remark,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// WeeklyBatchInput returns a Monday and Wednesday batch of total sessions
// starting on the reference date.
func WeeklyBatchInput(total int) application.BatchInput {
	room := "room-101"
	return application.BatchInput{
		Rule: recurrence.Rule{
			StartDate:     ReferenceDate(),
			Mode:          recurrence.ModeWeekly,
			Selectors:     []int{1, 3},
			TotalSessions: total,
		},
		Slots:       []recurrence.TimeSlot{Slot(9, 0, 10, 30)},
		TeacherID:   "teacher-1",
		ClassroomID: &room,
		ClassID:     "class-1a",
		CourseID:    "course-math",
	}
}
