package evaluation

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Field names one of the error statistics a ThresholdSet bounds.
type Field int

// The bounded error statistics, in reporting order.
const (
	PositionMean Field = iota
	PositionRMSE
	OrientationMean
	OrientationRMSE
)

// Fields lists every bounded field in reporting order.
var Fields = []Field{PositionMean, PositionRMSE, OrientationMean, OrientationRMSE}

func (f Field) String() string {
	switch f {
	case PositionMean:
		return "position_mean"
	case PositionRMSE:
		return "position_rmse"
	case OrientationMean:
		return "orientation_mean"
	case OrientationRMSE:
		return "orientation_rmse"
	default:
		return "unknown"
	}
}

// Unit returns the unit the field is measured in.
func (f Field) Unit() string {
	if f == OrientationMean || f == OrientationRMSE {
		return "rad"
	}
	return "m"
}

// Value returns the field's value in r.
func (f Field) Value(r *ErrorResult) float64 {
	switch f {
	case PositionMean:
		return r.PositionMean
	case PositionRMSE:
		return r.PositionRMSE
	case OrientationMean:
		return r.OrientationMean
	case OrientationRMSE:
		return r.OrientationRMSE
	default:
		return math.NaN()
	}
}

// Limit returns the bound s places on the field.
func (f Field) Limit(s ThresholdSet) float64 {
	switch f {
	case PositionMean:
		return s.MaxPositionMean
	case PositionRMSE:
		return s.MaxPositionRMSE
	case OrientationMean:
		return s.MaxOrientationMean
	case OrientationRMSE:
		return s.MaxOrientationRMSE
	default:
		return math.NaN()
	}
}

// ThresholdSet is a named group of upper bounds; all four must hold for a result to pass it.
// Positions are in meters and orientations in radians. Use math.Inf(1) to leave a field unbounded.
type ThresholdSet struct {
	Name               string
	MaxPositionMean    float64
	MaxPositionRMSE    float64
	MaxOrientationMean float64
	MaxOrientationRMSE float64
}

// Validate checks that every bound is a non-negative number.
func (s ThresholdSet) Validate() error {
	for _, f := range Fields {
		if limit := f.Limit(s); math.IsNaN(limit) || limit < 0 {
			return errors.Errorf("threshold set %q: max %s must be a non-negative number, got %v", s.Name, f, limit)
		}
	}
	return nil
}

// ThresholdSetFromResult builds a set that requires another run's position errors to be no worse than
// those of r. Orientation bounds are given explicitly since they are usually not compared run against run.
func ThresholdSetFromResult(name string, r *ErrorResult, maxOrientationMean, maxOrientationRMSE float64) ThresholdSet {
	return ThresholdSet{
		Name:               name,
		MaxPositionMean:    r.PositionMean,
		MaxPositionRMSE:    r.PositionRMSE,
		MaxOrientationMean: maxOrientationMean,
		MaxOrientationRMSE: maxOrientationRMSE,
	}
}

// Verdict is the outcome of comparing one field of one run against one threshold set.
type Verdict struct {
	Run          string
	ThresholdSet string
	Field        Field
	Actual       float64
	Limit        float64
	Passed       bool
}

// EvaluateThresholds compares every field of result against every set, in order, and returns one verdict per
// (set, field). A field fails when its value exceeds the limit or is not a number. Nothing is returned as an
// error; failures are only recorded.
func EvaluateThresholds(runLabel string, result *ErrorResult, sets []ThresholdSet) []Verdict {
	verdicts := make([]Verdict, 0, len(sets)*len(Fields))
	for _, s := range sets {
		for _, f := range Fields {
			actual, limit := f.Value(result), f.Limit(s)
			verdicts = append(verdicts, Verdict{
				Run:          runLabel,
				ThresholdSet: s.Name,
				Field:        f,
				Actual:       actual,
				Limit:        limit,
				Passed:       actual <= limit,
			})
		}
	}
	return verdicts
}

// AllPassed reports whether every verdict passed.
func AllPassed(verdicts []Verdict) bool {
	return lo.EveryBy(verdicts, func(v Verdict) bool { return v.Passed })
}

// Failures returns the failing verdicts, in order.
func Failures(verdicts []Verdict) []Verdict {
	return lo.Filter(verdicts, func(v Verdict, _ int) bool { return !v.Passed })
}
