// Package trajectory defines timestamped pose sequences and the temporal correspondence between them.
package trajectory

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/trajeval/spatialmath"
)

// Sample is a single timestamped pose. Timestamps are in nanoseconds.
type Sample struct {
	Timestamp int64
	Pose      spatialmath.Pose
}

// NewSample builds a Sample from raw position and orientation values.
func NewSample(timestamp int64, position r3.Vector, orientation quat.Number) Sample {
	return Sample{Timestamp: timestamp, Pose: spatialmath.NewPoseFromQuat(position, orientation)}
}

// Position returns the sample's position.
func (s Sample) Position() r3.Vector {
	return s.Pose.Point()
}

// Orientation returns the sample's orientation as a quaternion.
func (s Sample) Orientation() quat.Number {
	return s.Pose.Orientation().Quaternion()
}

// Trajectory is an immutable sequence of samples with strictly increasing timestamps and unit orientations.
type Trajectory struct {
	samples []Sample
}

// New validates samples and returns a Trajectory holding a private copy of them.
func New(samples []Sample) (*Trajectory, error) {
	for i, s := range samples {
		if s.Pose == nil {
			return nil, newValidationError(i, "missing pose")
		}
		if p := s.Position(); !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) {
			return nil, newValidationErrorf(i, "position %v is not finite", p)
		}
		if !spatialmath.IsUnitQuaternion(s.Orientation()) {
			return nil, newValidationErrorf(i, "orientation norm %f is not 1", quat.Abs(s.Orientation()))
		}
		if i == 0 {
			continue
		}
		switch prev := samples[i-1].Timestamp; {
		case s.Timestamp == prev:
			return nil, newValidationErrorf(i, "duplicate timestamp %d", s.Timestamp)
		case s.Timestamp < prev:
			return nil, newValidationErrorf(i, "timestamp %d precedes previous timestamp %d", s.Timestamp, prev)
		}
	}
	owned := make([]Sample, len(samples))
	copy(owned, samples)
	return &Trajectory{samples: owned}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Len returns the number of samples.
func (t *Trajectory) Len() int {
	return len(t.samples)
}

// At returns the i'th sample.
func (t *Trajectory) At(i int) Sample {
	return t.samples[i]
}

// Samples returns a copy of the trajectory's samples.
func (t *Trajectory) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Timestamps returns the timestamps of every sample in order.
func (t *Trajectory) Timestamps() []int64 {
	out := make([]int64, len(t.samples))
	for i, s := range t.samples {
		out[i] = s.Timestamp
	}
	return out
}

// Positions returns the positions of every sample in order.
func (t *Trajectory) Positions() []r3.Vector {
	out := make([]r3.Vector, len(t.samples))
	for i, s := range t.samples {
		out[i] = s.Position()
	}
	return out
}

// Subset returns a new trajectory holding only the samples at the given indices, in trajectory order.
// Indices outside the trajectory are ignored.
func (t *Trajectory) Subset(indices []int) *Trajectory {
	mask := NewEventMask(indices)
	out := make([]Sample, 0, mask.Len())
	for i, s := range t.samples {
		if mask.Contains(i) {
			out = append(out, s)
		}
	}
	return &Trajectory{samples: out}
}

// Map returns a new trajectory whose samples are f applied to each sample. Timestamps are preserved; the
// returned trajectory is validated like one built with New.
func (t *Trajectory) Map(f func(Sample) Sample) (*Trajectory, error) {
	out := make([]Sample, len(t.samples))
	for i, s := range t.samples {
		mapped := f(s)
		mapped.Timestamp = s.Timestamp
		out[i] = mapped
	}
	return New(out)
}
