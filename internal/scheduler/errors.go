package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidTransition is matched by every *StateTransitionError.
var ErrInvalidTransition = errors.New("scheduler: invalid state transition")

// ValidationError captures field level problems with a lifecycle or batch
// request.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "scheduler: validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "scheduler: validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// StateTransitionError reports an operation attempted on a terminal session.
type StateTransitionError struct {
	SessionID string
	From      Status
	Operation string
}

// Error implements the error interface.
func (e *StateTransitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scheduler: cannot %s session %s in status %s", e.Operation, e.SessionID, e.From)
}

// Unwrap exposes ErrInvalidTransition to errors.Is.
func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
