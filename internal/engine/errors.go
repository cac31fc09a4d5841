package engine

import (
	"errors"
	"fmt"
)

// JournalError reports a failure writing or reading the run journal. The
// run itself may have completed; its record is incomplete.
type JournalError struct {
	// RunID identifies the affected run.
	RunID string

	// Op names the journal step that failed.
	Op string

	Err error
}

// Error implements the error interface.
func (e *JournalError) Error() string {
	return fmt.Sprintf("journal %s (run=%s): %v", e.Op, e.RunID, e.Err)
}

// Unwrap returns the underlying store error.
func (e *JournalError) Unwrap() error {
	return e.Err
}

// IsJournalError reports whether err is a journal failure.
// Uses errors.As to handle wrapped errors.
func IsJournalError(err error) bool {
	var je *JournalError
	return errors.As(err, &je)
}
