// Package spatialmath defines spatial mathematical operations on poses and orientations.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// UnitNormTolerance is the largest deviation from 1 allowed for the norm of a quaternion that
// is meant to represent a rotation.
const UnitNormTolerance = 1e-6

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns an orientatation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// NewOrientationFromQuat wraps a quaternion as an Orientation. The quaternion is expected to be unit norm.
func NewOrientationFromQuat(q quat.Number) Orientation {
	qq := quaternion(q)
	return &qq
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationBetween returns the orientation representing the difference between the two given Orientations.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// OrientationDistance returns the geodesic distance between two orientations: the angle in radians, in [0, pi],
// of the smallest rotation taking one onto the other.
func OrientationDistance(o1, o2 Orientation) float64 {
	return math.Abs(QuatToR4AA(OrientationBetween(o1, o2).Quaternion()).Theta)
}

// QuaternionAlmostEqual checks whether two quaternions represent the same rotation within tol. q and -q are
// considered equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if withinTol(a, b, tol) {
		return true
	}
	return withinTol(a, Flip(b), tol)
}

func withinTol(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// IsUnitQuaternion reports whether q has a norm within UnitNormTolerance of 1.
func IsUnitQuaternion(q quat.Number) bool {
	return math.Abs(quat.Abs(q)-1) <= UnitNormTolerance
}

// Normalize scales q to unit norm. The zero quaternion is returned unchanged.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return q
	}
	return quat.Scale(1/n, q)
}

// quaternion is the internal Orientation implementation. It is always expected to be unit norm.
type quaternion quat.Number

func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

func (q *quaternion) AxisAngles() *R4AA {
	aa := QuatToR4AA(q.Quaternion())
	return &aa
}

func (q *quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}
