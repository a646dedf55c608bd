package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/persistence"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

// SessionStore captures the session reads and writes needed by the service.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, query SessionQuery) ([]Session, error)
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, session Session) error
	AppendEvent(ctx context.Context, event SessionEvent) error
	ListEvents(ctx context.Context, sessionID string) ([]SessionEvent, error)
}

// SessionRepository is a SessionStore that runs a unit of work atomically.
// fn may be invoked more than once when the store retries a busy transaction.
type SessionRepository interface {
	SessionStore
	InTransaction(ctx context.Context, fn func(store SessionStore) error) error
}

// SessionService plans batches and applies lifecycle operations to stored
// sessions. Every write re-reads the affected dates inside a transaction so
// conflict checks see the committed state.
type SessionService struct {
	sessions    SessionRepository
	calendar    holiday.Calendar
	planner     *scheduler.Planner
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, calendar holiday.Calendar, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, calendar, engine, idGenerator, now, nil)
}

// NewSessionServiceWithLogger wires dependencies for session operations with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, calendar holiday.Calendar, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		calendar:    calendar,
		planner:     scheduler.NewPlanner(engine, idGenerator),
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.OrDefault(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, append([]any{"service", "SessionService", "operation", operation}, attrs...)...)
}

// PlanBatch expands the batch and checks it against stored sessions without
// persisting anything. The returned digest is required to commit the plan.
func (s *SessionService) PlanBatch(ctx context.Context, input BatchInput) (result scheduler.BatchResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "PlanBatch", "teacher_id", input.TeacherID, "class_id", input.ClassID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to plan batch", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "batch planned", "accepted", len(result.Accepted), "rejected", len(result.Rejected), "digest", result.Digest)
	}()

	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	req, err := s.batchRequest(ctx, input)
	if err != nil {
		return
	}
	existing, err := s.windowSessions(ctx, s.sessions, input.Rule)
	if err != nil {
		return
	}
	return s.planner.BatchSchedule(req, existing)
}

// CommitBatch re-plans the batch inside a transaction and stores every
// accepted session, or nothing. The plan must reproduce digest exactly and
// must not reject any draft.
func (s *SessionService) CommitBatch(ctx context.Context, params CommitBatchParams) (commit BatchCommit, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CommitBatch", "teacher_id", params.Input.TeacherID, "class_id", params.Input.ClassID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to commit batch", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("batch_id", commit.BatchID).InfoContext(ctx, "batch committed", "sessions", len(commit.Sessions))
	}()

	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	digest := strings.TrimSpace(params.Digest)
	if digest == "" {
		vErr := &ValidationError{}
		vErr.add("digest", "digest of the reviewed plan is required")
		err = vErr
		return
	}

	req, err := s.batchRequest(ctx, params.Input)
	if err != nil {
		return
	}

	err = s.sessions.InTransaction(ctx, func(store SessionStore) error {
		existing, err := s.windowSessions(ctx, store, params.Input.Rule)
		if err != nil {
			return err
		}
		result, err := s.planner.BatchSchedule(req, existing)
		if err != nil {
			return err
		}
		if result.Digest != digest {
			return ErrStalePlan
		}
		if result.HasRejections() {
			return &BatchRejectedError{Result: result}
		}

		commit = BatchCommit{BatchID: s.idGenerator(), Digest: result.Digest}
		createdAt := s.now()
		for _, accepted := range result.Accepted {
			session := Session{Session: accepted, BatchID: commit.BatchID, CreatedAt: createdAt, UpdatedAt: createdAt}
			if err := store.CreateSession(ctx, session); err != nil {
				return mapRepoError(err)
			}
			if err := store.AppendEvent(ctx, SessionEvent{
				ID:         s.idGenerator(),
				SessionID:  session.ID,
				Operation:  OperationCreate,
				ToStatus:   session.Status,
				Reason:     strings.TrimSpace(params.Reason),
				OccurredAt: createdAt,
			}); err != nil {
				return mapRepoError(err)
			}
			commit.Sessions = append(commit.Sessions, session)
		}
		return nil
	})
	if err != nil {
		commit = BatchCommit{}
	}
	return
}

// CheckConflicts reports the stored sessions that would collide with draft.
func (s *SessionService) CheckConflicts(ctx context.Context, draft scheduler.Draft) ([]scheduler.ConflictInfo, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(draft.TeacherID) == "" {
		vErr.add("teacher_id", "teacher id is required")
	}
	if strings.TrimSpace(draft.ClassID) == "" {
		vErr.add("class_id", "class id is required")
	}
	if draft.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !draft.Slot.Valid() {
		vErr.add("time_slot", "start time must be before end time")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	existing, err := s.dateSessions(ctx, s.sessions, draft.Date)
	if err != nil {
		return nil, err
	}
	conflicts := scheduler.Detect(draft, existing)

	s.loggerWith(ctx, "CheckConflicts", "date", draft.Date.String()).
		DebugContext(ctx, "conflicts checked", "conflicts", len(conflicts))
	return conflicts, nil
}

// Reschedule moves a session to a new placement.
func (s *SessionService) Reschedule(ctx context.Context, params RescheduleParams) (Session, error) {
	req := scheduler.RescheduleRequest{
		Date:        params.Date,
		Slot:        params.Slot,
		TeacherID:   params.TeacherID,
		ClassroomID: params.ClassroomID,
		Reason:      params.Reason,
	}
	return s.transition(ctx, scheduler.OperationReschedule, params.SessionID, params.Reason,
		func(ctx context.Context, store SessionStore, current scheduler.Session) (scheduler.Session, []scheduler.ConflictInfo, error) {
			existing, err := s.dateSessions(ctx, store, params.Date)
			if err != nil {
				return current, nil, err
			}
			return scheduler.Reschedule(current, req, existing)
		})
}

// SubstituteTeacher assigns a substitute teacher to a session.
func (s *SessionService) SubstituteTeacher(ctx context.Context, params SubstituteParams) (Session, error) {
	return s.transition(ctx, scheduler.OperationSubstitute, params.SessionID, params.Reason,
		func(ctx context.Context, store SessionStore, current scheduler.Session) (scheduler.Session, []scheduler.ConflictInfo, error) {
			existing, err := s.dateSessions(ctx, store, current.Date)
			if err != nil {
				return current, nil, err
			}
			return scheduler.SubstituteTeacher(current, params.SubstituteTeacherID, params.Reason, existing)
		})
}

// Cancel cancels a session and frees its resources.
func (s *SessionService) Cancel(ctx context.Context, params CancelParams) (Session, error) {
	return s.transition(ctx, scheduler.OperationCancel, params.SessionID, params.Reason,
		func(_ context.Context, _ SessionStore, current scheduler.Session) (scheduler.Session, []scheduler.ConflictInfo, error) {
			updated, err := scheduler.Cancel(current, params.Reason)
			return updated, nil, err
		})
}

// Complete marks a session as held.
func (s *SessionService) Complete(ctx context.Context, sessionID string) (Session, error) {
	return s.transition(ctx, scheduler.OperationComplete, sessionID, "",
		func(_ context.Context, _ SessionStore, current scheduler.Session) (scheduler.Session, []scheduler.ConflictInfo, error) {
			updated, err := scheduler.Complete(current)
			return updated, nil, err
		})
}

type transitionFunc func(ctx context.Context, store SessionStore, current scheduler.Session) (scheduler.Session, []scheduler.ConflictInfo, error)

// transition loads the session, applies fn and stores the result together
// with an audit event in one transaction.
func (s *SessionService) transition(ctx context.Context, operation, sessionID, reason string, fn transitionFunc) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, operation, "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session operation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated", "status", string(session.Status))
	}()

	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if strings.TrimSpace(sessionID) == "" {
		err = ErrNotFound
		return
	}

	err = s.sessions.InTransaction(ctx, func(store SessionStore) error {
		current, err := store.GetSession(ctx, sessionID)
		if err != nil {
			return mapRepoError(err)
		}

		updated, conflicts, err := fn(ctx, store, current.Session)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Operation: operation, SessionID: sessionID, Conflicts: conflicts}
		}

		next := current
		next.Session = updated
		next.UpdatedAt = s.now()
		if err := store.UpdateSession(ctx, next); err != nil {
			return mapRepoError(err)
		}
		if err := store.AppendEvent(ctx, SessionEvent{
			ID:         s.idGenerator(),
			SessionID:  sessionID,
			Operation:  operation,
			FromStatus: current.Status,
			ToStatus:   updated.Status,
			Reason:     strings.TrimSpace(reason),
			OccurredAt: next.UpdatedAt,
		}); err != nil {
			return mapRepoError(err)
		}
		session = next
		return nil
	})
	if err != nil {
		session = Session{}
	}
	return
}

// GetSession returns a stored session.
func (s *SessionService) GetSession(ctx context.Context, id string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	return session, nil
}

// ListSessions returns the sessions matching query ordered by date and time.
func (s *SessionService) ListSessions(ctx context.Context, query SessionQuery) ([]Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		vErr := &ValidationError{}
		vErr.add("to", "to must not be before from")
		return nil, vErr
	}
	for _, status := range query.Statuses {
		if !status.Valid() {
			vErr := &ValidationError{}
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
			return nil, vErr
		}
	}

	sessions, err := s.sessions.ListSessions(ctx, query)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return sessions, nil
}

// ListEvents returns the audit trail of a session.
func (s *SessionService) ListEvents(ctx context.Context, sessionID string) ([]SessionEvent, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	events, err := s.sessions.ListEvents(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return events, nil
}

func (s *SessionService) batchRequest(ctx context.Context, input BatchInput) (scheduler.BatchRequest, error) {
	req := scheduler.BatchRequest{
		Rule:        input.Rule,
		Slots:       input.Slots,
		TeacherID:   input.TeacherID,
		ClassroomID: input.ClassroomID,
		ClassID:     input.ClassID,
		CourseID:    input.CourseID,
	}
	if !input.Rule.SkipHolidays || s.calendar == nil {
		return req, nil
	}
	from, to, ok := planningWindow(input.Rule, s.planner.Engine().Ceiling())
	if !ok {
		return req, nil
	}
	holidays, err := s.calendar.Holidays(ctx, from, to)
	if err != nil {
		return scheduler.BatchRequest{}, fmt.Errorf("load holidays: %w", err)
	}
	req.Holidays = holidays
	return req, nil
}

// windowSessions loads the active sessions on every date the rule can reach.
func (s *SessionService) windowSessions(ctx context.Context, store SessionStore, rule recurrence.Rule) ([]scheduler.Session, error) {
	from, to, ok := planningWindow(rule, s.planner.Engine().Ceiling())
	if !ok {
		return nil, nil
	}
	return activeSessions(ctx, store, from, to)
}

func (s *SessionService) dateSessions(ctx context.Context, store SessionStore, date recurrence.Date) ([]scheduler.Session, error) {
	if date.IsZero() {
		return nil, nil
	}
	return activeSessions(ctx, store, date, date)
}

func activeSessions(ctx context.Context, store SessionStore, from, to recurrence.Date) ([]scheduler.Session, error) {
	stored, err := store.ListSessions(ctx, SessionQuery{From: from, To: to, ExcludeCancelled: true})
	if err != nil && !isNotFoundError(err) {
		return nil, err
	}
	out := make([]scheduler.Session, 0, len(stored))
	for _, session := range stored {
		out = append(out, session.Session)
	}
	return out, nil
}

// planningWindow returns the dates a rule can generate within ceiling
// day-steps. ok is false when the rule has no start date.
func planningWindow(rule recurrence.Rule, ceiling int) (from, to recurrence.Date, ok bool) {
	if rule.StartDate.IsZero() {
		return recurrence.Date{}, recurrence.Date{}, false
	}
	from = rule.StartDate
	if rule.Mode == recurrence.ModeNone {
		return from, from, true
	}
	to = from.AddDays(ceiling)
	if rule.EndDate != nil && !rule.EndDate.IsZero() && rule.EndDate.Before(to) {
		to = *rule.EndDate
	}
	if to.Before(from) {
		to = from
	}
	return from, to, true
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return ErrNotFound
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
