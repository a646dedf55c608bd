package scheduler

import (
	"errors"
	"testing"
)

func TestReschedule(t *testing.T) {
	t.Parallel()

	base := existingSession("s-1", "t-1", "class-a", strPtr("room-1"), feb2, slot(9, 0, 10, 0))

	t.Run("commits new placement when free", func(t *testing.T) {
		t.Parallel()

		updated, conflicts, err := Reschedule(base, RescheduleRequest{
			Date:        feb2.AddDays(1),
			Slot:        slot(13, 0, 14, 0),
			ClassroomID: strPtr("room-2"),
			Reason:      "teacher training",
		}, []Session{base})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("unexpected conflicts: %+v", conflicts)
		}
		if updated.Status != StatusRescheduled || updated.Date != feb2.AddDays(1) || *updated.ClassroomID != "room-2" {
			t.Fatalf("unexpected updated session: %+v", updated)
		}
		if updated.Remark != "teacher training" {
			t.Fatalf("expected reason to be kept as remark, got %q", updated.Remark)
		}
		if updated.ID != base.ID {
			t.Fatalf("reschedule must keep the session identity")
		}
	})

	t.Run("same placement never conflicts with itself", func(t *testing.T) {
		t.Parallel()

		_, conflicts, err := Reschedule(base, RescheduleRequest{Date: base.Date, Slot: base.Slot, TeacherID: strPtr(base.TeacherID), Reason: "confirm"}, []Session{base})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 0 {
			t.Fatalf("unexpected self conflict: %+v", conflicts)
		}
	})

	t.Run("conflict leaves session unchanged", func(t *testing.T) {
		t.Parallel()

		other := existingSession("s-2", "t-2", "class-b", strPtr("room-2"), feb2, slot(13, 0, 14, 0))
		result, conflicts, err := Reschedule(base, RescheduleRequest{Date: feb2, Slot: slot(13, 30, 14, 30), ClassroomID: strPtr("room-2"), Reason: "move"}, []Session{base, other})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Dimension != DimensionClassroom {
			t.Fatalf("unexpected conflicts: %+v", conflicts)
		}
		if result.Status != StatusScheduled || result.Slot != base.Slot {
			t.Fatalf("session must be unchanged on conflict: %+v", result)
		}
	})

	t.Run("new teacher clears substitute", func(t *testing.T) {
		t.Parallel()

		covered := base.Clone()
		covered.ActualTeacherID = strPtr("t-sub")
		updated, _, err := Reschedule(covered, RescheduleRequest{Date: feb2, Slot: base.Slot, TeacherID: strPtr("t-3"), Reason: "staff change"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.TeacherID != "t-3" || updated.ActualTeacherID != nil {
			t.Fatalf("unexpected teacher assignment: %+v", updated)
		}
	})

	t.Run("rescheduled sessions remain active", func(t *testing.T) {
		t.Parallel()

		first, _, err := Reschedule(base, RescheduleRequest{Date: feb2, Slot: slot(11, 0, 12, 0), Reason: "first"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, _, err := Reschedule(first, RescheduleRequest{Date: feb2, Slot: slot(12, 0, 13, 0), Reason: "second"}, nil); err != nil {
			t.Fatalf("expected second reschedule to be legal, got %v", err)
		}
	})

	t.Run("validates reason and slot", func(t *testing.T) {
		t.Parallel()

		_, _, err := Reschedule(base, RescheduleRequest{Date: feb2, Slot: slot(10, 0, 9, 0), Reason: "  "}, nil)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"reason", "time_slot"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
			}
		}
	})
}

func TestSubstituteTeacher(t *testing.T) {
	t.Parallel()

	base := existingSession("s-1", "t-1", "class-a", strPtr("room-1"), feb2, slot(9, 0, 10, 0))

	t.Run("assigns substitute without moving the session", func(t *testing.T) {
		t.Parallel()

		updated, conflicts, err := SubstituteTeacher(base, "t-2", "sick leave", []Session{base})
		if err != nil || len(conflicts) != 0 {
			t.Fatalf("unexpected result: %v %+v", err, conflicts)
		}
		if updated.EffectiveTeacherID() != "t-2" || updated.TeacherID != "t-1" || updated.Slot != base.Slot {
			t.Fatalf("unexpected updated session: %+v", updated)
		}
		if updated.Status != StatusScheduled {
			t.Fatalf("substitution must not change status, got %s", updated.Status)
		}
	})

	t.Run("rejects double-booked substitute", func(t *testing.T) {
		t.Parallel()

		busy := existingSession("s-2", "t-2", "class-b", strPtr("room-2"), feb2, slot(9, 30, 10, 30))
		result, conflicts, err := SubstituteTeacher(base, "t-2", "sick leave", []Session{base, busy})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Dimension != DimensionTeacher || conflicts[0].Session.ID != "s-2" {
			t.Fatalf("unexpected conflicts: %+v", conflicts)
		}
		if result.ActualTeacherID != nil {
			t.Fatalf("session must be unchanged on conflict")
		}
	})

	t.Run("ignores room and class collisions", func(t *testing.T) {
		t.Parallel()

		sameRoom := existingSession("s-3", "t-9", "class-a", strPtr("room-1"), feb2, slot(9, 0, 10, 0))
		_, conflicts, err := SubstituteTeacher(base, "t-2", "sick leave", []Session{sameRoom})
		if err != nil || len(conflicts) != 0 {
			t.Fatalf("expected teacher-only detection, got %v %+v", err, conflicts)
		}
	})

	t.Run("requires substitute and reason", func(t *testing.T) {
		t.Parallel()

		_, _, err := SubstituteTeacher(base, " ", "", nil)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 2 {
			t.Fatalf("expected two field errors, got %v", err)
		}
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	base := existingSession("s-1", "t-1", "class-a", strPtr("room-1"), feb2, slot(9, 0, 10, 0))

	cancelled, err := Cancel(base, "public holiday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled || cancelled.CancelReason != "public holiday" {
		t.Fatalf("unexpected cancelled session: %+v", cancelled)
	}
	if base.Status != StatusScheduled {
		t.Fatalf("cancel must not mutate its input")
	}

	replacement := Draft{TeacherID: base.TeacherID, ClassID: base.ClassID, ClassroomID: base.ClassroomID, Date: base.Date, Slot: base.Slot}
	if conflicts := Detect(replacement, []Session{cancelled}); len(conflicts) != 0 {
		t.Fatalf("cancelled slot must be free, got %+v", conflicts)
	}

	if _, err := Cancel(base, ""); err == nil {
		t.Fatalf("expected empty reason to be rejected")
	}
}

func TestTerminalSessionsRejectOperations(t *testing.T) {
	t.Parallel()

	for _, status := range []Status{StatusCancelled, StatusCompleted} {
		session := existingSession("s-1", "t-1", "class-a", nil, feb2, slot(9, 0, 10, 0))
		session.Status = status

		checks := map[string]error{}
		_, _, checks[OperationReschedule] = Reschedule(session, RescheduleRequest{Date: feb2, Slot: slot(11, 0, 12, 0), Reason: "x"}, nil)
		_, _, checks[OperationSubstitute] = SubstituteTeacher(session, "t-2", "x", nil)
		_, checks[OperationCancel] = Cancel(session, "x")
		_, checks[OperationComplete] = Complete(session)

		for op, err := range checks {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s on %s: expected ErrInvalidTransition, got %v", op, status, err)
			}
			var stErr *StateTransitionError
			if !errors.As(err, &stErr) || stErr.From != status || stErr.Operation != op {
				t.Fatalf("%s on %s: unexpected error details %v", op, status, err)
			}
		}
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	session := existingSession("s-1", "t-1", "class-a", nil, feb2, slot(9, 0, 10, 0))
	session.Status = StatusRescheduled
	completed, err := Complete(session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
}
