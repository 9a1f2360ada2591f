package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose: a position in 3D space and an orientation.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return &pose{orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose at the given point with the given orientation.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return &pose{point: p, orientation: quat.Number{Real: 1}}
	}
	return &pose{point: p, orientation: o.Quaternion()}
}

// NewPoseFromQuat is NewPose for callers that already hold a quaternion.
func NewPoseFromQuat(p r3.Vector, q quat.Number) Pose {
	return &pose{point: p, orientation: q}
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() Orientation {
	return NewOrientationFromQuat(p.orientation)
}

func (p *pose) String() string {
	q := p.orientation
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f qW:%.4f qX:%.4f qY:%.4f qZ:%.4f}",
		p.point.X, p.point.Y, p.point.Z, q.Real, q.Imag, q.Jmag, q.Kmag)
}

// PoseAlmostEqual returns whether two poses have points within 1e-8 and orientations within 1e-5 of each other.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps is PoseAlmostEqual with a caller supplied point tolerance.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// R3VectorAlmostEqual returns whether the distance between a and b is less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return a.Sub(b).Norm() < epsilon
}

// RotateVector applies the rotation q to v.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}
