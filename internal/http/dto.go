package http

import (
	"time"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

type slotDTO struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

func (s slotDTO) toSlot() recurrence.TimeSlot {
	start, _ := recurrence.ParseTimeOfDay(s.Start)
	end, _ := recurrence.ParseTimeOfDay(s.End)
	return recurrence.TimeSlot{Start: start, End: end}
}

type sessionDTO struct {
	ID                 string  `json:"id,omitempty"`
	BatchID            string  `json:"batch_id,omitempty"`
	ClassID            string  `json:"class_id"`
	CourseID           string  `json:"course_id"`
	TeacherID          string  `json:"teacher_id"`
	ActualTeacherID    *string `json:"actual_teacher_id,omitempty"`
	EffectiveTeacherID string  `json:"effective_teacher_id"`
	ClassroomID        *string `json:"classroom_id,omitempty"`
	Date               string  `json:"date"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
	Status             string  `json:"status"`
	CancelReason       string  `json:"cancel_reason,omitempty"`
	Remark             string  `json:"remark,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
	UpdatedAt          string  `json:"updated_at,omitempty"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := fromSchedulerSession(session.Session)
	dto.BatchID = session.BatchID
	dto.CreatedAt = formatInstant(session.CreatedAt)
	dto.UpdatedAt = formatInstant(session.UpdatedAt)
	return dto
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

func fromSchedulerSession(s scheduler.Session) sessionDTO {
	return sessionDTO{
		ID:                 s.ID,
		ClassID:            s.ClassID,
		CourseID:           s.CourseID,
		TeacherID:          s.TeacherID,
		ActualTeacherID:    s.ActualTeacherID,
		EffectiveTeacherID: s.EffectiveTeacherID(),
		ClassroomID:        s.ClassroomID,
		Date:               s.Date.String(),
		Start:              s.Slot.Start.String(),
		End:                s.Slot.End.String(),
		Status:             string(s.Status),
		CancelReason:       s.CancelReason,
		Remark:             s.Remark,
	}
}

type draftDTO struct {
	Sequence    int     `json:"sequence,omitempty"`
	ClassID     string  `json:"class_id"`
	CourseID    string  `json:"course_id"`
	TeacherID   string  `json:"teacher_id"`
	ClassroomID *string `json:"classroom_id,omitempty"`
	Date        string  `json:"date"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
}

func toDraftDTO(d scheduler.Draft) draftDTO {
	return draftDTO{
		Sequence:    d.Sequence,
		ClassID:     d.ClassID,
		CourseID:    d.CourseID,
		TeacherID:   d.TeacherID,
		ClassroomID: d.ClassroomID,
		Date:        d.Date.String(),
		Start:       d.Slot.Start.String(),
		End:         d.Slot.End.String(),
	}
}

type conflictDTO struct {
	Dimension string     `json:"dimension"`
	Session   sessionDTO `json:"session"`
}

func toConflictDTOs(conflicts []scheduler.ConflictInfo) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{Dimension: string(c.Dimension), Session: fromSchedulerSession(c.Session)})
	}
	return out
}

type rejectedDraftDTO struct {
	Draft     draftDTO      `json:"draft"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type manifestDTO struct {
	Digest   string             `json:"digest"`
	Accepted []sessionDTO       `json:"accepted"`
	Rejected []rejectedDraftDTO `json:"rejected"`
}

func toManifestDTO(result scheduler.BatchResult) manifestDTO {
	manifest := manifestDTO{
		Digest:   result.Digest,
		Accepted: make([]sessionDTO, 0, len(result.Accepted)),
		Rejected: make([]rejectedDraftDTO, 0, len(result.Rejected)),
	}
	for _, s := range result.Accepted {
		manifest.Accepted = append(manifest.Accepted, fromSchedulerSession(s))
	}
	for _, r := range result.Rejected {
		manifest.Rejected = append(manifest.Rejected, rejectedDraftDTO{Draft: toDraftDTO(r.Draft), Conflicts: toConflictDTOs(r.Conflicts)})
	}
	return manifest
}

type eventDTO struct {
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

func toEventDTOs(events []application.SessionEvent) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, eventDTO{
			ID:         e.ID,
			Operation:  e.Operation,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			Reason:     e.Reason,
			OccurredAt: formatInstant(e.OccurredAt),
		})
	}
	return out
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseDate(value string) recurrence.Date {
	d, _ := recurrence.ParseDate(value)
	return d
}
