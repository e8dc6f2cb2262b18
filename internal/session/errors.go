package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned when a capture is started while one
	// is already in progress.
	ErrAlreadyRunning = errors.New("capture already running")

	// ErrModelRequired is returned when an operation needs an installed
	// recognition model and none is selected.
	ErrModelRequired = errors.New("recognition model not installed")

	// ErrConfiguration is returned when a required path is unset.
	ErrConfiguration = errors.New("configuration missing")

	// ErrFileMissing is returned when a model or audio file does not
	// exist on disk.
	ErrFileMissing = errors.New("file missing")

	// ErrExecutableNotFound is returned when the recognition executable
	// cannot be located.
	ErrExecutableNotFound = errors.New("recognition executable not found")
)

// ProcessExitError reports a recognizer process that exited non-zero.
type ProcessExitError struct {
	Code int
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("recognizer exited with code %d", e.Code)
}

// PersistenceError wraps a vault I/O failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
