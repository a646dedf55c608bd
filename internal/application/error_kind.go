package application

import (
	"errors"

	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStalePlan):
		return "stale_plan"
	case errors.Is(err, ErrBatchRejected):
		return "batch_rejected"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, scheduler.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, recurrence.ErrUnbounded):
		return "boundedness"
	case errors.Is(err, holiday.ErrInvalidRange):
		return "validation"
	}

	var vErr *ValidationError
	var sErr *scheduler.ValidationError
	var rErr *recurrence.ValidationError
	if errors.As(err, &vErr) || errors.As(err, &sErr) || errors.As(err, &rErr) {
		return "validation"
	}

	return "unexpected"
}
