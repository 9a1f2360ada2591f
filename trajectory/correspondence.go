package trajectory

import (
	"sort"
	"time"

	"go.viam.com/trajeval/utils"
)

// DefaultMatchTolerance is the largest timestamp gap accepted between corresponding samples.
const DefaultMatchTolerance = 10 * time.Millisecond

// Match pairs a sample of one trajectory with the temporally closest sample of another.
type Match struct {
	EstimateIndex  int
	ReferenceIndex int
	// Offset is the reference timestamp minus the estimate timestamp, in nanoseconds.
	Offset int64
}

// Associate matches every estimate sample to the reference sample with the nearest timestamp. Samples with no
// reference sample within tolerance are left out; the result is ordered by estimate index. On an exact tie
// the earlier reference sample wins.
func Associate(estimate, reference *Trajectory, tolerance time.Duration) []Match {
	if estimate.Len() == 0 || reference.Len() == 0 {
		return nil
	}
	refTimes := reference.Timestamps()
	tol := tolerance.Nanoseconds()

	matches := make([]Match, 0, estimate.Len())
	for i, s := range estimate.samples {
		j, ok := nearest(refTimes, s.Timestamp)
		if !ok {
			continue
		}
		offset := refTimes[j] - s.Timestamp
		if utils.AbsInt64(offset) > tol {
			continue
		}
		matches = append(matches, Match{EstimateIndex: i, ReferenceIndex: j, Offset: offset})
	}
	return matches
}

// nearest returns the index in sorted times closest to ts.
func nearest(times []int64, ts int64) (int, bool) {
	if len(times) == 0 {
		return 0, false
	}
	j := sort.Search(len(times), func(k int) bool { return times[k] >= ts })
	switch {
	case j == 0:
		return 0, true
	case j == len(times):
		return len(times) - 1, true
	}
	if ts-times[j-1] <= times[j]-ts {
		return j - 1, true
	}
	return j, true
}
