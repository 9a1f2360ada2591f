package align

import (
	"fmt"
)

// InsufficientCorrespondenceError is returned when the matched samples cannot determine a transform: there are
// too few of them, or their positions are degenerate (coincident or collinear).
type InsufficientCorrespondenceError struct {
	Found    int
	Required int
	Reason   string
}

func (e *InsufficientCorrespondenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("insufficient correspondences for alignment (%d matched): %s", e.Found, e.Reason)
	}
	return fmt.Sprintf("insufficient correspondences for alignment: %d matched, need at least %d", e.Found, e.Required)
}
