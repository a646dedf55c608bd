package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

type sessionService interface {
	GetSession(ctx context.Context, id string) (application.Session, error)
	ListSessions(ctx context.Context, query application.SessionQuery) ([]application.Session, error)
	ListEvents(ctx context.Context, sessionID string) ([]application.SessionEvent, error)
	CheckConflicts(ctx context.Context, draft scheduler.Draft) ([]scheduler.ConflictInfo, error)
	Reschedule(ctx context.Context, params application.RescheduleParams) (application.Session, error)
	SubstituteTeacher(ctx context.Context, params application.SubstituteParams) (application.Session, error)
	Cancel(ctx context.Context, params application.CancelParams) (application.Session, error)
	Complete(ctx context.Context, sessionID string) (application.Session, error)
}

// SessionHandler serves session queries and lifecycle operations.
type SessionHandler struct {
	service sessionService
	responder
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logging.OrDefault(logger).With("handler", "session"))}
}

type rescheduleRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Start       string  `json:"start" validate:"required,datetime=15:04"`
	End         string  `json:"end" validate:"required,datetime=15:04"`
	TeacherID   *string `json:"teacher_id"`
	ClassroomID *string `json:"classroom_id"`
	Reason      string  `json:"reason"`
}

type substituteRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	Reason    string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type conflictCheckRequest struct {
	SessionID   string  `json:"session_id"`
	TeacherID   string  `json:"teacher_id" validate:"required"`
	ClassroomID *string `json:"classroom_id"`
	ClassID     string  `json:"class_id" validate:"required"`
	CourseID    string  `json:"course_id"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Start       string  `json:"start" validate:"required,datetime=15:04"`
	End         string  `json:"end" validate:"required,datetime=15:04"`
}

type conflictCheckResponse struct {
	Conflicts []conflictDTO `json:"conflicts"`
}

// List handles GET /sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	query, fields := parseSessionQuery(r)
	if len(fields) > 0 {
		h.writeValidation(r.Context(), w, fields)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), query)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, toSessionDTOs(sessions))
}

// Get handles GET /sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Events handles GET /sessions/{id}/events.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	events, err := h.service.ListEvents(r.Context(), id)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, toEventDTOs(events))
}

// Reschedule handles POST /sessions/{id}/reschedule.
func (h *SessionHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	session, err := h.service.Reschedule(r.Context(), application.RescheduleParams{
		SessionID:   id,
		Date:        parseDate(req.Date),
		Slot:        slotDTO{Start: req.Start, End: req.End}.toSlot(),
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		Reason:      req.Reason,
	})
	h.writeSession(w, r, session, err)
}

// Substitute handles POST /sessions/{id}/substitute.
func (h *SessionHandler) Substitute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req substituteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	session, err := h.service.SubstituteTeacher(r.Context(), application.SubstituteParams{
		SessionID:           id,
		SubstituteTeacherID: req.TeacherID,
		Reason:              req.Reason,
	})
	h.writeSession(w, r, session, err)
}

// Cancel handles POST /sessions/{id}/cancel.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	session, err := h.service.Cancel(r.Context(), application.CancelParams{SessionID: id, Reason: req.Reason})
	h.writeSession(w, r, session, err)
}

// Complete handles POST /sessions/{id}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.Complete(r.Context(), id)
	h.writeSession(w, r, session, err)
}

// CheckConflicts handles POST /conflicts/check.
func (h *SessionHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	var req conflictCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	conflicts, err := h.service.CheckConflicts(r.Context(), scheduler.Draft{
		ID:          req.SessionID,
		ClassID:     req.ClassID,
		CourseID:    req.CourseID,
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		Date:        parseDate(req.Date),
		Slot:        slotDTO{Start: req.Start, End: req.End}.toSlot(),
	})
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{Conflicts: toConflictDTOs(conflicts)})
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, session application.Session, err error) {
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return "", false
	}
	return id, true
}

func parseSessionQuery(r *http.Request) (application.SessionQuery, map[string]string) {
	values := r.URL.Query()
	fields := make(map[string]string)
	query := application.SessionQuery{
		TeacherID:   strings.TrimSpace(values.Get("teacher_id")),
		ClassroomID: strings.TrimSpace(values.Get("classroom_id")),
		ClassID:     strings.TrimSpace(values.Get("class_id")),
	}

	for _, key := range []string{"from", "to"} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		d, err := recurrence.ParseDate(raw)
		if err != nil {
			fields[key] = "has an invalid format"
			continue
		}
		if key == "from" {
			query.From = d
		} else {
			query.To = d
		}
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Statuses = append(query.Statuses, scheduler.Status(part))
			}
		}
	}
	return query, fields
}
