package scheduler

import (
	"strings"

	"github.com/example/class-scheduler/internal/recurrence"
)

// Lifecycle operation names used in errors and audit records.
const (
	OperationReschedule = "reschedule"
	OperationSubstitute = "substitute"
	OperationCancel     = "cancel"
	OperationComplete   = "complete"
)

// RescheduleRequest carries the new placement of a session. Nil resource
// pointers keep the current assignment.
type RescheduleRequest struct {
	Date        recurrence.Date
	Slot        recurrence.TimeSlot
	TeacherID   *string
	ClassroomID *string
	Reason      string
}

// Reschedule moves a session to a new date, time, teacher or classroom.
//
// The new placement is checked against existing with the session's own
// identity removed. When conflicts exist the original session is returned
// unchanged together with the conflicts; the caller decides what to show.
// A new teacher replaces the planned teacher and drops any substitute.
func Reschedule(session Session, req RescheduleRequest, existing []Session) (Session, []ConflictInfo, error) {
	if err := ensureActive(session, OperationReschedule); err != nil {
		return session, nil, err
	}

	vErr := &ValidationError{}
	validateReason(req.Reason, vErr)
	if req.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !req.Slot.Valid() {
		vErr.add("time_slot", "start time must be before end time")
	}
	if req.TeacherID != nil && strings.TrimSpace(*req.TeacherID) == "" {
		vErr.add("teacher_id", "teacher id must not be blank")
	}
	if vErr.HasErrors() {
		return session, nil, vErr
	}

	updated := session.Clone()
	updated.Date = req.Date
	updated.Slot = req.Slot
	if req.TeacherID != nil {
		updated.TeacherID = strings.TrimSpace(*req.TeacherID)
		updated.ActualTeacherID = nil
	}
	if req.ClassroomID != nil {
		if room := strings.TrimSpace(*req.ClassroomID); room != "" {
			updated.ClassroomID = &room
		} else {
			updated.ClassroomID = nil
		}
	}

	if conflicts := Detect(updated.Draft(), excludeSession(existing, session.ID)); len(conflicts) > 0 {
		return session, conflicts, nil
	}

	updated.Status = StatusRescheduled
	updated.Remark = strings.TrimSpace(req.Reason)
	return updated, nil, nil
}

// SubstituteTeacher assigns a substitute without moving the session. Only
// the teacher dimension is checked because the room and class are unchanged.
func SubstituteTeacher(session Session, substituteID, reason string, existing []Session) (Session, []ConflictInfo, error) {
	if err := ensureActive(session, OperationSubstitute); err != nil {
		return session, nil, err
	}

	vErr := &ValidationError{}
	validateReason(reason, vErr)
	substituteID = strings.TrimSpace(substituteID)
	if substituteID == "" {
		vErr.add("substitute_teacher_id", "substitute teacher id is required")
	}
	if vErr.HasErrors() {
		return session, nil, vErr
	}

	updated := session.Clone()
	updated.ActualTeacherID = &substituteID

	conflicts := DetectDimensions(updated.Draft(), excludeSession(existing, session.ID), DimensionTeacher)
	if len(conflicts) > 0 {
		return session, conflicts, nil
	}

	updated.Remark = strings.TrimSpace(reason)
	return updated, nil, nil
}

// Cancel frees the session's resources. It never runs conflict detection.
func Cancel(session Session, reason string) (Session, error) {
	if err := ensureActive(session, OperationCancel); err != nil {
		return session, err
	}

	vErr := &ValidationError{}
	validateReason(reason, vErr)
	if vErr.HasErrors() {
		return session, vErr
	}

	updated := session.Clone()
	updated.Status = StatusCancelled
	updated.CancelReason = strings.TrimSpace(reason)
	return updated, nil
}

// Complete records that the session took place. It is the hook used by the
// attendance process.
func Complete(session Session) (Session, error) {
	if err := ensureActive(session, OperationComplete); err != nil {
		return session, err
	}

	updated := session.Clone()
	updated.Status = StatusCompleted
	return updated, nil
}

func ensureActive(session Session, operation string) error {
	if session.Status.Terminal() {
		return &StateTransitionError{SessionID: session.ID, From: session.Status, Operation: operation}
	}
	return nil
}

func validateReason(reason string, vErr *ValidationError) {
	if strings.TrimSpace(reason) == "" {
		vErr.add("reason", "reason is required")
	}
}
