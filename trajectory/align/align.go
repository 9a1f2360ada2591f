// Package align computes the similarity transform that best maps an estimated trajectory onto a reference
// trajectory, following Umeyama, "Least-squares estimation of transformation parameters between two point
// patterns", IEEE PAMI 1991.
package align

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/trajeval/spatialmath"
	"go.viam.com/trajeval/trajectory"
	"go.viam.com/trajeval/utils"
)

// MinCorrespondences is the fewest matched samples that can determine a similarity transform.
const MinCorrespondences = 3

// degeneracyTolerance is the ratio between the second and first principal spread of a point set below which
// the set is treated as collinear.
const degeneracyTolerance = 1e-9

// Transform is a similarity transform p -> Scale * Rotation * p + Translation.
type Transform struct {
	Rotation    *spatialmath.RotationMatrix
	Translation r3.Vector
	Scale       float64
}

// IdentityTransform returns the transform that leaves every pose unchanged.
func IdentityTransform() Transform {
	return Transform{Rotation: spatialmath.IdentityRotationMatrix(), Scale: 1}
}

// Apply maps a position through the transform.
func (tf Transform) Apply(p r3.Vector) r3.Vector {
	return tf.Rotation.Mul(p).Mul(tf.Scale).Add(tf.Translation)
}

// ApplyOrientation rotates an orientation by the rotation part of the transform. Scale has no effect on
// orientations.
func (tf Transform) ApplyOrientation(q quat.Number) quat.Number {
	return spatialmath.Normalize(quat.Mul(tf.Rotation.Quaternion(), q))
}

// ApplyTo returns a new trajectory with every sample of traj mapped through the transform.
func (tf Transform) ApplyTo(traj *trajectory.Trajectory) (*trajectory.Trajectory, error) {
	return traj.Map(func(s trajectory.Sample) trajectory.Sample {
		return trajectory.NewSample(s.Timestamp, tf.Apply(s.Position()), tf.ApplyOrientation(s.Orientation()))
	})
}

func (tf Transform) String() string {
	aa := tf.Rotation.AxisAngles()
	return fmt.Sprintf(
		"rotation: %.6f rad (%.3f deg) about (%.4f, %.4f, %.4f), translation: (%.4f, %.4f, %.4f), scale: %.6f",
		aa.Theta, utils.RadToDeg(aa.Theta), aa.RX, aa.RY, aa.RZ, tf.Translation.X, tf.Translation.Y, tf.Translation.Z, tf.Scale)
}

type options struct {
	tolerance time.Duration
}

// Option configures Align.
type Option func(*options)

// WithMatchTolerance sets the largest timestamp gap accepted between corresponding samples.
func WithMatchTolerance(tolerance time.Duration) Option {
	return func(o *options) {
		o.tolerance = tolerance
	}
}

// Align finds the transform mapping estimate onto reference from their temporal correspondences, and returns
// estimate with that transform applied. When estimateScale is false the scale is fixed at 1. On error the
// returned transform is the identity.
func Align(
	estimate, reference *trajectory.Trajectory,
	estimateScale bool,
	opts ...Option,
) (*trajectory.Trajectory, Transform, error) {
	o := options{tolerance: trajectory.DefaultMatchTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	matches := trajectory.Associate(estimate, reference, o.tolerance)
	src := make([]r3.Vector, 0, len(matches))
	dst := make([]r3.Vector, 0, len(matches))
	for _, m := range matches {
		src = append(src, estimate.At(m.EstimateIndex).Position())
		dst = append(dst, reference.At(m.ReferenceIndex).Position())
	}

	tf, err := Fit(src, dst, estimateScale)
	if err != nil {
		return nil, IdentityTransform(), err
	}
	aligned, err := tf.ApplyTo(estimate)
	if err != nil {
		return nil, IdentityTransform(), errors.Wrap(err, "applying alignment")
	}
	return aligned, tf, nil
}

// Fit returns the least-squares similarity transform mapping src[i] onto dst[i], or the identity on error.
func Fit(src, dst []r3.Vector, estimateScale bool) (Transform, error) {
	if len(src) != len(dst) {
		return IdentityTransform(), errors.Errorf("point sets differ in size: %d and %d", len(src), len(dst))
	}
	n := len(src)
	if n < MinCorrespondences {
		return IdentityTransform(), &InsufficientCorrespondenceError{Found: n, Required: MinCorrespondences}
	}

	muSrc, muDst := centroid(src), centroid(dst)
	if reason := degenerate(src, muSrc); reason != "" {
		return IdentityTransform(), &InsufficientCorrespondenceError{Found: n, Required: MinCorrespondences, Reason: "estimate " + reason}
	}
	if reason := degenerate(dst, muDst); reason != "" {
		return IdentityTransform(), &InsufficientCorrespondenceError{Found: n, Required: MinCorrespondences, Reason: "reference " + reason}
	}

	// cross covariance of the centered sets, and the variance of the source set
	cov := mat.NewDense(3, 3, nil)
	varSrc := 0.
	for i := range src {
		a, b := src[i].Sub(muSrc), dst[i].Sub(muDst)
		varSrc += a.Norm2()
		cov.Add(cov, outer(b, a))
	}
	cov.Scale(1/float64(n), cov)
	varSrc /= float64(n)

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return IdentityTransform(), errors.New("failed to factorize cross covariance")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	d := svd.Values(nil)

	// flip the weakest axis if needed so the result is a rotation, not a reflection
	s := []float64{1, 1, 1}
	if mat.Det(&u)*mat.Det(&v) < 0 {
		s[2] = -1
	}
	var us, r mat.Dense
	us.Mul(&u, mat.NewDiagDense(3, s))
	r.Mul(&us, v.T())

	rotation, err := spatialmath.NewRotationMatrixFromDense(&r)
	if err != nil {
		return IdentityTransform(), errors.Wrap(err, "fitted rotation is invalid")
	}

	scale := 1.
	if estimateScale {
		scale = (d[0]*s[0] + d[1]*s[1] + d[2]*s[2]) / varSrc
		if scale <= 0 {
			return IdentityTransform(), &InsufficientCorrespondenceError{
				Found: n, Required: MinCorrespondences, Reason: fmt.Sprintf("fitted scale %g is not positive", scale),
			}
		}
	}

	return Transform{
		Rotation:    rotation,
		Translation: muDst.Sub(rotation.Mul(muSrc).Mul(scale)),
		Scale:       scale,
	}, nil
}

func centroid(points []r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

func outer(a, b r3.Vector) *mat.Dense {
	av, bv := []float64{a.X, a.Y, a.Z}, []float64{b.X, b.Y, b.Z}
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, av[i]*bv[j])
		}
	}
	return m
}

// degenerate returns a description of why points cannot anchor a rotation, or "" if they can.
func degenerate(points []r3.Vector, mu r3.Vector) string {
	scatter := mat.NewDense(3, 3, nil)
	for _, p := range points {
		c := p.Sub(mu)
		scatter.Add(scatter, outer(c, c))
	}
	var svd mat.SVD
	if ok := svd.Factorize(scatter, mat.SVDNone); !ok {
		return "positions could not be factorized"
	}
	spread := svd.Values(nil)
	switch {
	case spread[0] <= 1e-12:
		return "positions are coincident"
	case spread[1] <= degeneracyTolerance*spread[0]:
		return "positions are collinear"
	}
	return ""
}
