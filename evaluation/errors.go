package evaluation

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// EmptySampleSetError is returned when no samples remain to evaluate after correspondence and masking.
type EmptySampleSetError struct {
	Matched int
	Masked  bool
}

func (e *EmptySampleSetError) Error() string {
	if e.Masked {
		return fmt.Sprintf("no samples to evaluate: none of the %d matched samples is selected by the event mask", e.Matched)
	}
	return "no samples to evaluate: no estimate sample has a reference sample within tolerance"
}

// ThresholdViolationError is the consolidated failure for a session: it lists every failing comparison of
// every run.
type ThresholdViolationError struct {
	Violations []Verdict
	err        error
}

func newThresholdViolationError(violations []Verdict) *ThresholdViolationError {
	var err error
	for _, v := range violations {
		err = multierr.Append(err, violationError{v})
	}
	return &ThresholdViolationError{Violations: violations, err: err}
}

func (e *ThresholdViolationError) Error() string {
	lines := make([]string, 0, len(e.Violations)+1)
	lines = append(lines, fmt.Sprintf("%d threshold violation(s):", len(e.Violations)))
	for _, err := range multierr.Errors(e.err) {
		lines = append(lines, "  "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Unwrap returns one error per violation.
func (e *ThresholdViolationError) Unwrap() []error {
	return multierr.Errors(e.err)
}

type violationError struct {
	v Verdict
}

func (e violationError) Error() string {
	return fmt.Sprintf("run %q, threshold set %q: %s = %.6f exceeds limit %.6f",
		e.v.Run, e.v.ThresholdSet, e.v.Field, e.v.Actual, e.v.Limit)
}
