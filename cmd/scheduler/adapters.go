package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

type sessionRepositoryAdapter struct {
	sessionStoreAdapter
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{sessionStoreAdapter: sessionStoreAdapter{store: repo}, repo: repo}
}

func (a *sessionRepositoryAdapter) InTransaction(ctx context.Context, fn func(store application.SessionStore) error) error {
	return a.repo.InTransaction(ctx, func(store persistence.SessionStore) error {
		return fn(sessionStoreAdapter{store: store})
	})
}

type sessionStoreAdapter struct {
	store persistence.SessionStore
}

func (a sessionStoreAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	model, err := a.store.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(model)
}

func (a sessionStoreAdapter) ListSessions(ctx context.Context, query application.SessionQuery) ([]application.Session, error) {
	filter := persistence.SessionFilter{
		From:             optionalDate(query.From),
		To:               optionalDate(query.To),
		TeacherID:        query.TeacherID,
		ClassroomID:      query.ClassroomID,
		ClassID:          query.ClassID,
		ExcludeCancelled: query.ExcludeCancelled,
	}
	for _, status := range query.Statuses {
		filter.Statuses = append(filter.Statuses, string(status))
	}

	models, err := a.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, err
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		session, err := toApplicationSession(model)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (a sessionStoreAdapter) CreateSession(ctx context.Context, session application.Session) error {
	return a.store.CreateSession(ctx, toPersistenceSession(session))
}

func (a sessionStoreAdapter) UpdateSession(ctx context.Context, session application.Session) error {
	return a.store.UpdateSession(ctx, toPersistenceSession(session))
}

func (a sessionStoreAdapter) AppendEvent(ctx context.Context, event application.SessionEvent) error {
	return a.store.AppendEvent(ctx, persistence.SessionEvent{
		ID:         event.ID,
		SessionID:  event.SessionID,
		Operation:  event.Operation,
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt,
	})
}

func (a sessionStoreAdapter) ListEvents(ctx context.Context, sessionID string) ([]application.SessionEvent, error) {
	models, err := a.store.ListEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events := make([]application.SessionEvent, 0, len(models))
	for _, model := range models {
		events = append(events, application.SessionEvent{
			ID:         model.ID,
			SessionID:  model.SessionID,
			Operation:  model.Operation,
			FromStatus: scheduler.Status(model.FromStatus),
			ToStatus:   scheduler.Status(model.ToStatus),
			Reason:     model.Reason,
			OccurredAt: model.OccurredAt,
		})
	}
	return events, nil
}

// holidayRepositoryAdapter serves both the holiday service and the cached
// calendar from the SQLite holiday table.
type holidayRepositoryAdapter struct {
	repo persistence.HolidayRepository
}

func newHolidayRepositoryAdapter(repo persistence.HolidayRepository) *holidayRepositoryAdapter {
	return &holidayRepositoryAdapter{repo: repo}
}

func (a *holidayRepositoryAdapter) ListHolidays(ctx context.Context, from, to recurrence.Date) ([]holiday.Holiday, error) {
	models, err := a.repo.ListHolidays(ctx, optionalDate(from), optionalDate(to))
	if err != nil {
		return nil, err
	}
	days := make([]holiday.Holiday, 0, len(models))
	for _, model := range models {
		date, err := recurrence.ParseDate(model.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", model.Date, err)
		}
		days = append(days, holiday.Holiday{Date: date, Name: model.Name})
	}
	return days, nil
}

func (a *holidayRepositoryAdapter) HolidaysInYear(ctx context.Context, year int) ([]holiday.Holiday, error) {
	return a.ListHolidays(ctx, recurrence.NewDate(year, time.January, 1), recurrence.NewDate(year, time.December, 31))
}

func (a *holidayRepositoryAdapter) UpsertHoliday(ctx context.Context, day holiday.Holiday) error {
	return a.repo.UpsertHoliday(ctx, persistence.Holiday{Date: day.Date.String(), Name: day.Name})
}

func (a *holidayRepositoryAdapter) DeleteHoliday(ctx context.Context, date recurrence.Date) error {
	return a.repo.DeleteHoliday(ctx, date.String())
}

func toApplicationSession(model persistence.Session) (application.Session, error) {
	date, err := recurrence.ParseDate(model.Date)
	if err != nil {
		return application.Session{}, fmt.Errorf("session %s date: %w", model.ID, err)
	}
	start, err := recurrence.ParseTimeOfDay(model.StartTime)
	if err != nil {
		return application.Session{}, fmt.Errorf("session %s start: %w", model.ID, err)
	}
	end, err := recurrence.ParseTimeOfDay(model.EndTime)
	if err != nil {
		return application.Session{}, fmt.Errorf("session %s end: %w", model.ID, err)
	}

	session := application.Session{
		Session: scheduler.Session{
			ID:              model.ID,
			ClassID:         model.ClassID,
			CourseID:        model.CourseID,
			TeacherID:       model.TeacherID,
			ClassroomID:     cloneString(model.ClassroomID),
			Date:            date,
			Slot:            recurrence.TimeSlot{Start: start, End: end},
			Status:          scheduler.Status(model.Status),
			ActualTeacherID: cloneString(model.ActualTeacherID),
			CancelReason:    model.CancelReason,
			Remark:          model.Remark,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.BatchID != nil {
		session.BatchID = *model.BatchID
	}
	return session, nil
}

func toPersistenceSession(session application.Session) persistence.Session {
	var batchID *string
	if session.BatchID != "" {
		id := session.BatchID
		batchID = &id
	}
	return persistence.Session{
		ID:              session.ID,
		BatchID:         batchID,
		ClassID:         session.ClassID,
		CourseID:        session.CourseID,
		TeacherID:       session.TeacherID,
		ClassroomID:     cloneString(session.ClassroomID),
		Date:            session.Date.String(),
		StartTime:       session.Slot.Start.String(),
		EndTime:         session.Slot.End.String(),
		Status:          string(session.Status),
		ActualTeacherID: cloneString(session.ActualTeacherID),
		CancelReason:    session.CancelReason,
		Remark:          session.Remark,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func optionalDate(d recurrence.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

var (
	_ application.SessionRepository = (*sessionRepositoryAdapter)(nil)
	_ application.HolidayRepository = (*holidayRepositoryAdapter)(nil)
	_ holiday.Source                = (*holidayRepositoryAdapter)(nil)
)
