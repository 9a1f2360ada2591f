// Package evaluation compares an aligned trajectory estimate against ground truth: it computes error
// statistics, checks them against threshold sets and aggregates the verdicts of a test session.
package evaluation

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/trajeval/spatialmath"
	"go.viam.com/trajeval/trajectory"
)

// SampleError is the error of one matched estimate sample.
type SampleError struct {
	Timestamp     int64
	EstimateIndex int
	// Position is the Euclidean distance in meters.
	Position float64
	// Orientation is the geodesic angle in radians, in [0, pi].
	Orientation float64
}

// ErrorResult holds the aggregate error statistics of one evaluated trajectory.
type ErrorResult struct {
	PositionMean    float64
	PositionRMSE    float64
	OrientationMean float64
	OrientationRMSE float64
	SampleCount     int

	PositionMedian    float64
	PositionMax       float64
	OrientationMedian float64
	OrientationMax    float64

	// Samples holds the per-sample errors in estimate order, for plotting.
	Samples []SampleError
}

type options struct {
	tolerance time.Duration
}

// Option configures ComputeErrors.
type Option func(*options)

// WithMatchTolerance sets the largest timestamp gap accepted between corresponding samples.
func WithMatchTolerance(tolerance time.Duration) Option {
	return func(o *options) {
		o.tolerance = tolerance
	}
}

// ComputeErrors matches aligned against reference by timestamp and computes position and orientation error
// statistics over the matched samples. If mask is non-nil only estimate samples whose index it selects are
// used. The estimate is not aligned here; pass an unaligned estimate to measure raw error.
func ComputeErrors(
	aligned, reference *trajectory.Trajectory,
	mask *trajectory.EventMask,
	opts ...Option,
) (*ErrorResult, error) {
	o := options{tolerance: trajectory.DefaultMatchTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	matches := trajectory.Associate(aligned, reference, o.tolerance)
	samples := make([]SampleError, 0, len(matches))
	for _, m := range matches {
		if mask != nil && !mask.Contains(m.EstimateIndex) {
			continue
		}
		est, ref := aligned.At(m.EstimateIndex), reference.At(m.ReferenceIndex)
		samples = append(samples, SampleError{
			Timestamp:     est.Timestamp,
			EstimateIndex: m.EstimateIndex,
			Position:      est.Position().Distance(ref.Position()),
			Orientation:   spatialmath.OrientationDistance(est.Pose.Orientation(), ref.Pose.Orientation()),
		})
	}
	if len(samples) == 0 {
		return nil, &EmptySampleSetError{Matched: len(matches), Masked: mask != nil}
	}
	return summarize(samples)
}

func summarize(samples []SampleError) (*ErrorResult, error) {
	position := make([]float64, len(samples))
	orientation := make([]float64, len(samples))
	for i, s := range samples {
		position[i] = s.Position
		orientation[i] = s.Orientation
	}

	res := &ErrorResult{SampleCount: len(samples), Samples: samples}
	res.PositionMean, res.PositionRMSE = meanAndRMSE(position)
	res.OrientationMean, res.OrientationRMSE = meanAndRMSE(orientation)

	var err error
	if res.PositionMedian, err = stats.Median(position); err != nil {
		return nil, errors.Wrap(err, "position median")
	}
	if res.PositionMax, err = stats.Max(position); err != nil {
		return nil, errors.Wrap(err, "position max")
	}
	if res.OrientationMedian, err = stats.Median(orientation); err != nil {
		return nil, errors.Wrap(err, "orientation median")
	}
	if res.OrientationMax, err = stats.Max(orientation); err != nil {
		return nil, errors.Wrap(err, "orientation max")
	}
	return res, nil
}

// meanAndRMSE returns the arithmetic mean and the root mean square of errs.
func meanAndRMSE(errs []float64) (float64, float64) {
	mean := stat.Mean(errs, nil)
	return mean, math.Sqrt(floats.Dot(errs, errs)/float64(len(errs)))
}
