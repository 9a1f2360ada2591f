package trajectory

import (
	"fmt"
)

// ValidationError is returned when samples do not form a valid trajectory.
type ValidationError struct {
	Index  int
	Reason string
}

func newValidationError(index int, reason string) *ValidationError {
	return &ValidationError{Index: index, Reason: reason}
}

func newValidationErrorf(index int, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Index: index, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trajectory sample %d: %s", e.Index, e.Reason)
}
