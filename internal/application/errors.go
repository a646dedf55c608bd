package application

import (
	"errors"
	"fmt"

	"github.com/example/class-scheduler/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrStalePlan is returned when a batch no longer plans to the digest the
	// caller reviewed.
	ErrStalePlan = errors.New("application: batch plan changed since it was reviewed")
	// ErrBatchRejected is matched by every *BatchRejectedError.
	ErrBatchRejected = errors.New("application: batch contains rejected drafts")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("application: scheduling conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError reports that a lifecycle operation would double-book a
// teacher, classroom or class. The session was left unchanged.
type ConflictError struct {
	Operation string
	SessionID string
	Conflicts []scheduler.ConflictInfo
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("application: %s of session %s conflicts with %d session(s)", e.Operation, e.SessionID, len(e.Conflicts))
}

// Unwrap exposes ErrConflict to errors.Is.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// BatchRejectedError is returned by a commit whose plan still rejects drafts.
// Nothing from the batch was stored.
type BatchRejectedError struct {
	Result scheduler.BatchResult
}

// Error implements the error interface.
func (e *BatchRejectedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("application: batch rejected %d of %d drafts", len(e.Result.Rejected), len(e.Result.Rejected)+len(e.Result.Accepted))
}

// Unwrap exposes ErrBatchRejected to errors.Is.
func (e *BatchRejectedError) Unwrap() error {
	return ErrBatchRejected
}
