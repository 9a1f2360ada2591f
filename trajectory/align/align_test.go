package align

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/trajeval/spatialmath"
	"go.viam.com/trajeval/trajectory"
)

const tol = 1e-9

// helix returns a non planar trajectory sampled every 50ms with a slowly turning orientation.
func helix(t *testing.T, n int) *trajectory.Trajectory {
	t.Helper()
	samples := make([]trajectory.Sample, 0, n)
	for i := 0; i < n; i++ {
		a := float64(i) * 0.3
		o := &spatialmath.R4AA{Theta: a / 4, RX: 0.2, RY: 0.3, RZ: 1}
		samples = append(samples, trajectory.NewSample(
			int64(i)*int64(50*time.Millisecond),
			r3.Vector{X: 2 * math.Cos(a), Y: 2 * math.Sin(a), Z: 0.1 * float64(i)},
			o.ToQuat(),
		))
	}
	traj, err := trajectory.New(samples)
	test.That(t, err, test.ShouldBeNil)
	return traj
}

func transformed(t *testing.T, traj *trajectory.Trajectory, tf Transform) *trajectory.Trajectory {
	t.Helper()
	out, err := tf.ApplyTo(traj)
	test.That(t, err, test.ShouldBeNil)
	return out
}

func assertSameTrajectory(t *testing.T, a, b *trajectory.Trajectory) {
	t.Helper()
	test.That(t, a.Len(), test.ShouldEqual, b.Len())
	for i := 0; i < a.Len(); i++ {
		test.That(t, spatialmath.R3VectorAlmostEqual(a.At(i).Position(), b.At(i).Position(), 1e-6), test.ShouldBeTrue)
		test.That(t, spatialmath.OrientationDistance(
			spatialmath.NewOrientationFromQuat(a.At(i).Orientation()),
			spatialmath.NewOrientationFromQuat(b.At(i).Orientation()),
		), test.ShouldBeLessThan, 1e-6)
	}
}

func TestSelfAlignmentIsIdentity(t *testing.T) {
	traj := helix(t, 40)
	for _, estimateScale := range []bool{false, true} {
		aligned, tf, err := Align(traj, traj, estimateScale)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tf.Scale, test.ShouldAlmostEqual, 1, tol)
		test.That(t, tf.Translation.Norm(), test.ShouldAlmostEqual, 0, tol)
		test.That(t, tf.Rotation.AxisAngles().Theta, test.ShouldAlmostEqual, 0, 1e-7)
		assertSameTrajectory(t, aligned, traj)
	}
}

func TestRigidOffsetRecovery(t *testing.T) {
	reference := helix(t, 40)
	rot := (&spatialmath.R4AA{Theta: 0.7, RX: 1, RY: 2, RZ: 3}).RotationMatrix()
	known := Transform{Rotation: rot, Translation: r3.Vector{X: 1, Y: -2, Z: 0.5}, Scale: 2.5}
	estimate := transformed(t, reference, known)

	t.Run("with scale", func(t *testing.T) {
		aligned, tf, err := Align(estimate, reference, true)
		test.That(t, err, test.ShouldBeNil)
		// the recovered transform is the inverse of the one that produced the estimate
		test.That(t, tf.Scale, test.ShouldAlmostEqual, 1/known.Scale, 1e-9)
		inv := spatialmath.OrientationBetween(rot, spatialmath.NewZeroOrientation())
		test.That(t, spatialmath.OrientationDistance(tf.Rotation, inv), test.ShouldBeLessThan, 1e-7)
		back := tf.Apply(known.Apply(r3.Vector{X: 3, Y: 4, Z: 5}))
		test.That(t, spatialmath.R3VectorAlmostEqual(back, r3.Vector{X: 3, Y: 4, Z: 5}, 1e-6), test.ShouldBeTrue)
		assertSameTrajectory(t, aligned, reference)
	})

	t.Run("rigid only", func(t *testing.T) {
		rigid := Transform{Rotation: rot, Translation: known.Translation, Scale: 1}
		aligned, tf, err := Align(transformed(t, reference, rigid), reference, false)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tf.Scale, test.ShouldEqual, 1)
		assertSameTrajectory(t, aligned, reference)
	})
}

func TestPureTranslation(t *testing.T) {
	reference := helix(t, 20)
	offset := Transform{Rotation: spatialmath.IdentityRotationMatrix(), Translation: r3.Vector{X: 1}, Scale: 1}
	estimate := transformed(t, reference, offset)

	aligned, tf, err := Align(estimate, reference, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(tf.Translation, r3.Vector{X: -1}, 1e-9), test.ShouldBeTrue)
	test.That(t, tf.Rotation.AxisAngles().Theta, test.ShouldAlmostEqual, 0, 1e-7)
	assertSameTrajectory(t, aligned, reference)
}

func TestScaleFixedWhenNotEstimated(t *testing.T) {
	reference := helix(t, 20)
	scaled := Transform{Rotation: spatialmath.IdentityRotationMatrix(), Scale: 3}
	_, tf, err := Align(transformed(t, reference, scaled), reference, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Scale, test.ShouldEqual, 1)
}

func TestInsufficientCorrespondences(t *testing.T) {
	twoSamples, err := trajectory.New([]trajectory.Sample{
		trajectory.NewSample(0, r3.Vector{}, quat.Number{Real: 1}),
		trajectory.NewSample(int64(50*time.Millisecond), r3.Vector{X: 1}, quat.Number{Real: 1}),
	})
	test.That(t, err, test.ShouldBeNil)

	_, tf, err := Align(twoSamples, helix(t, 10), true)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, tf.Apply(r3.Vector{X: 1, Y: 2, Z: 3}), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, tf.String(), test.ShouldContainSubstring, "scale: 1.000000")
	var ice *InsufficientCorrespondenceError
	test.That(t, errors.As(err, &ice), test.ShouldBeTrue)
	test.That(t, ice.Found, test.ShouldEqual, 2)
	test.That(t, ice.Required, test.ShouldEqual, MinCorrespondences)

	t.Run("zero tolerance still matches exact timestamps", func(t *testing.T) {
		reference := helix(t, 10)
		_, _, err := Align(reference, reference, false, WithMatchTolerance(0))
		test.That(t, err, test.ShouldBeNil)
	})

	t.Run("no overlap in time", func(t *testing.T) {
		reference := helix(t, 10)
		shifted := make([]trajectory.Sample, 0, reference.Len())
		for _, s := range reference.Samples() {
			shifted = append(shifted, trajectory.Sample{Timestamp: s.Timestamp + int64(time.Hour), Pose: s.Pose})
		}
		far, err := trajectory.New(shifted)
		test.That(t, err, test.ShouldBeNil)
		_, _, err = Align(far, reference, false)
		var ice *InsufficientCorrespondenceError
		test.That(t, errors.As(err, &ice), test.ShouldBeTrue)
		test.That(t, ice.Found, test.ShouldEqual, 0)
	})
}

func TestDegenerateGeometry(t *testing.T) {
	collinear := make([]trajectory.Sample, 0, 10)
	coincident := make([]trajectory.Sample, 0, 10)
	for i := 0; i < 10; i++ {
		ts := int64(i) * int64(50*time.Millisecond)
		collinear = append(collinear, trajectory.NewSample(ts, r3.Vector{X: float64(i), Y: 2 * float64(i)}, quat.Number{Real: 1}))
		coincident = append(coincident, trajectory.NewSample(ts, r3.Vector{X: 4, Y: 4, Z: 4}, quat.Number{Real: 1}))
	}
	for name, samples := range map[string][]trajectory.Sample{"collinear": collinear, "coincident": coincident} {
		t.Run(name, func(t *testing.T) {
			traj, err := trajectory.New(samples)
			test.That(t, err, test.ShouldBeNil)
			_, _, err = Align(traj, traj, true)
			var ice *InsufficientCorrespondenceError
			test.That(t, errors.As(err, &ice), test.ShouldBeTrue)
			test.That(t, ice.Reason, test.ShouldContainSubstring, name)
		})
	}
}

func TestUnmatchedSamplesAreDropped(t *testing.T) {
	reference := helix(t, 20)
	samples := reference.Samples()
	// add a sample far away in time; it must not take part in the fit
	samples = append(samples, trajectory.NewSample(samples[len(samples)-1].Timestamp+int64(time.Minute), r3.Vector{X: 1000}, quat.Number{Real: 1}))
	estimate, err := trajectory.New(samples)
	test.That(t, err, test.ShouldBeNil)

	aligned, tf, err := Align(estimate, reference, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Scale, test.ShouldAlmostEqual, 1, tol)
	// every sample is still transformed, matched or not
	test.That(t, aligned.Len(), test.ShouldEqual, estimate.Len())
}

func TestFitMismatchedSizes(t *testing.T) {
	tf, err := Fit([]r3.Vector{{}, {}}, []r3.Vector{{}}, false)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, tf.Scale, test.ShouldEqual, 1)
	test.That(t, tf.ApplyOrientation(quat.Number{Real: 1}), test.ShouldResemble, quat.Number{Real: 1})
}
