package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidRule is matched by every *ValidationError returned from Expand.
	ErrInvalidRule = errors.New("recurrence: invalid rule")
	// ErrUnbounded is matched by every *BoundednessError.
	ErrUnbounded = errors.New("recurrence: expansion did not satisfy its bound")
)

// ValidationError captures field level problems with a rule or its slots.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "recurrence: validation failed"
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
	return "recurrence: validation failed: " + strings.Join(parts, "; ")
}

// Is lets callers match with errors.Is(err, ErrInvalidRule).
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidRule
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// BoundednessError reports an expansion that hit its iteration ceiling
// before meeting its target, or that produced no dates at all.
type BoundednessError struct {
	// Ceiling is the number of day-steps the engine was allowed.
	Ceiling int
	// Steps is the number of day-steps actually walked.
	Steps int
	// Generated is the number of dates included before stopping.
	Generated int
	// Target is the requested session count, zero when only an end date bounds the rule.
	Target int
}

// Error implements the error interface.
func (e *BoundednessError) Error() string {
	if e == nil {
		return ""
	}
	if e.Generated == 0 && e.Steps < e.Ceiling {
		return "recurrence: rule matches no dates within its range"
	}
	if e.Target > 0 {
		return fmt.Sprintf("recurrence: generated %d of %d sessions within %d day-steps", e.Generated, e.Target, e.Ceiling)
	}
	return fmt.Sprintf("recurrence: end date not reached within %d day-steps (%d sessions generated)", e.Ceiling, e.Generated)
}

// Is lets callers match with errors.Is(err, ErrUnbounded).
func (e *BoundednessError) Is(target error) bool {
	return target == ErrUnbounded
}
