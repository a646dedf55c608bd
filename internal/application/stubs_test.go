package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

// memSessionStore is an in-memory SessionStore that reports missing rows the
// way the SQLite layer does.
type memSessionStore struct {
	sessions map[string]Session
	events   []SessionEvent
	listErr  error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]Session)}
}

func (m *memSessionStore) clone() *memSessionStore {
	out := &memSessionStore{sessions: make(map[string]Session, len(m.sessions)), listErr: m.listErr}
	for id, s := range m.sessions {
		out.sessions[id] = cloneSession(s)
	}
	out.events = append([]SessionEvent(nil), m.events...)
	return out
}

func cloneSession(s Session) Session {
	s.Session = s.Session.Clone()
	return s
}

func (m *memSessionStore) GetSession(_ context.Context, id string) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *memSessionStore) ListSessions(_ context.Context, q SessionQuery) ([]Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Session
	for _, s := range m.sessions {
		if !q.From.IsZero() && s.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && s.Date.After(q.To) {
			continue
		}
		if q.ExcludeCancelled && s.Status == scheduler.StatusCancelled {
			continue
		}
		if q.TeacherID != "" && s.TeacherID != q.TeacherID && s.EffectiveTeacherID() != q.TeacherID {
			continue
		}
		if q.ClassroomID != "" && (s.ClassroomID == nil || *s.ClassroomID != q.ClassroomID) {
			continue
		}
		if q.ClassID != "" && s.ClassID != q.ClassID {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, s.Status) {
			continue
		}
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if out[i].Slot.Start != out[j].Slot.Start {
			return out[i].Slot.Start < out[j].Slot.Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memSessionStore) CreateSession(_ context.Context, s Session) error {
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("%w: %s", persistence.ErrDuplicate, s.ID)
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *memSessionStore) UpdateSession(_ context.Context, s Session) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *memSessionStore) AppendEvent(_ context.Context, e SessionEvent) error {
	if _, ok := m.sessions[e.SessionID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSessionStore) ListEvents(_ context.Context, sessionID string) ([]SessionEvent, error) {
	var out []SessionEvent
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// memSessionRepo commits a transaction by swapping in the working copy, so a
// failing callback leaves the committed state untouched.
type memSessionRepo struct {
	*memSessionStore
	transactions int
}

func newMemSessionRepo(seed ...Session) *memSessionRepo {
	repo := &memSessionRepo{memSessionStore: newMemSessionStore()}
	for _, s := range seed {
		repo.sessions[s.ID] = cloneSession(s)
	}
	return repo
}

func (r *memSessionRepo) InTransaction(_ context.Context, fn func(store SessionStore) error) error {
	r.transactions++
	working := r.memSessionStore.clone()
	if err := fn(working); err != nil {
		return err
	}
	r.memSessionStore = working
	return nil
}

type calendarStub struct {
	set   recurrence.HolidaySet
	err   error
	calls [][2]recurrence.Date
}

func (c *calendarStub) Holidays(_ context.Context, from, to recurrence.Date) (recurrence.HolidaySet, error) {
	c.calls = append(c.calls, [2]recurrence.Date{from, to})
	if c.err != nil {
		return nil, c.err
	}
	return c.set, nil
}

var _ holiday.Calendar = (*calendarStub)(nil)

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow() time.Time {
	return time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
}

func strPtr(value string) *string { return &value }

func slot(startHour, startMinute, endHour, endMinute int) recurrence.TimeSlot {
	return recurrence.TimeSlot{Start: recurrence.Clock(startHour, startMinute), End: recurrence.Clock(endHour, endMinute)}
}

var feb2 = recurrence.NewDate(2026, time.February, 2)

func storedSession(id, teacher, class string, room *string, date recurrence.Date, ts recurrence.TimeSlot) Session {
	return Session{
		Session: scheduler.Session{
			ID:          id,
			ClassID:     class,
			CourseID:    "course-1",
			TeacherID:   teacher,
			ClassroomID: room,
			Date:        date,
			Slot:        ts,
			Status:      scheduler.StatusScheduled,
		},
		CreatedAt: fixedNow().Add(-24 * time.Hour),
		UpdatedAt: fixedNow().Add(-24 * time.Hour),
	}
}

func weeklyInput() BatchInput {
	return BatchInput{
		Rule: recurrence.Rule{
			StartDate:     feb2,
			Mode:          recurrence.ModeWeekly,
			Selectors:     []int{1, 3},
			TotalSessions: 4,
		},
		Slots:       []recurrence.TimeSlot{slot(9, 0, 10, 30)},
		TeacherID:   "5",
		ClassroomID: strPtr("room-1"),
		ClassID:     "class-a",
		CourseID:    "course-1",
	}
}

func newTestSessionService(repo SessionRepository, calendar holiday.Calendar) *SessionService {
	return NewSessionService(repo, calendar, recurrence.NewEngine(nil), sequence("id"), fixedNow)
}
