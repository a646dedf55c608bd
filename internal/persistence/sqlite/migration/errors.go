package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrVersionConflict      = errors.New("migration version conflict")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrChecksumMismatch reports an applied migration file that was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// StepError records which step of which migration failed. File is empty for
// database steps.
type StepError struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	var where string
	switch {
	case e.Version != "" && e.File != "":
		where = fmt.Sprintf("migration %s (%s)", e.Version, e.File)
	case e.Version != "":
		where = "migration " + e.Version
	case e.File != "":
		where = "migration file " + e.File
	default:
		where = "migrations"
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func fileError(version, file, step string, err error) *StepError {
	return &StepError{Version: version, File: file, Step: step, Err: err}
}

func dbError(version, step string, err error) *StepError {
	return &StepError{Version: version, Step: step, Err: err}
}
