package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, zero.AxisAngles().Theta, test.ShouldEqual, 0)
	test.That(t, zero.RotationMatrix(), test.ShouldResemble, IdentityRotationMatrix())
}

func TestQuaternions(t *testing.T) {
	qq45x := NewOrientationFromQuat(q45x)
	test.That(t, qq45x.AxisAngles().Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, qq45x.AxisAngles().RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, qq45x.AxisAngles().RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, qq45x.AxisAngles().RZ, test.ShouldAlmostEqual, aa45x.RZ)

	back := qq45x.RotationMatrix().Quaternion()
	test.That(t, QuaternionAlmostEqual(back, q45x, 1e-9), test.ShouldBeTrue)
}

func TestAxisAngles(t *testing.T) {
	q := aa45x.Quaternion()
	test.That(t, q.Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, q.Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, q45x.Jmag)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, q45x.Kmag)

	test.That(t, NewR4AA().Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, aa45x.ToR3().Norm(), test.ShouldAlmostEqual, th)
}

func TestOrientationDistance(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, OrientationDistance(zero, zero), test.ShouldEqual, 0)
	test.That(t, OrientationDistance(zero, aa45x), test.ShouldAlmostEqual, th)
	test.That(t, OrientationDistance(aa45x, zero), test.ShouldAlmostEqual, th)

	// q and -q are the same rotation
	flipped := NewOrientationFromQuat(Flip(q45x))
	test.That(t, OrientationDistance(aa45x, flipped), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, OrientationDistance(zero, flipped), test.ShouldAlmostEqual, th)

	t.Run("distance is bounded by pi", func(t *testing.T) {
		for _, angle := range []float64{0.1, 1, math.Pi - 0.01, math.Pi, math.Pi + 0.5, 2*math.Pi - 0.1} {
			o := &R4AA{Theta: angle, RX: 0, RY: 1, RZ: 0}
			d := OrientationDistance(zero, o)
			test.That(t, d, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, d, test.ShouldBeLessThanOrEqualTo, math.Pi+1e-12)
			expected := angle
			if angle > math.Pi {
				expected = 2*math.Pi - angle
			}
			test.That(t, d, test.ShouldAlmostEqual, expected, 1e-9)
		}
	})
}

func TestOrientationBetween(t *testing.T) {
	o1 := &R4AA{Theta: 0.3, RX: 0, RY: 0, RZ: 1}
	o2 := &R4AA{Theta: 0.8, RX: 0, RY: 0, RZ: 1}
	between := OrientationBetween(o1, o2)
	test.That(t, between.AxisAngles().Theta, test.ShouldAlmostEqual, 0.5)
	test.That(t, between.AxisAngles().RZ, test.ShouldAlmostEqual, 1)
}

func TestNormalize(t *testing.T) {
	q := Normalize(quat.Number{Real: 2})
	test.That(t, q, test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, IsUnitQuaternion(q), test.ShouldBeTrue)
	test.That(t, IsUnitQuaternion(quat.Number{Real: 1.01}), test.ShouldBeFalse)
	test.That(t, Normalize(quat.Number{}), test.ShouldResemble, quat.Number{})
}

func TestRotateVector(t *testing.T) {
	q := (&R4AA{Theta: math.Pi / 2, RX: 0, RY: 0, RZ: 1}).ToQuat()
	v := RotateVector(q, r3.Vector{X: 1})
	test.That(t, R3VectorAlmostEqual(v, r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)

	viaMatrix := QuatToRotationMatrix(q).Mul(r3.Vector{X: 1})
	test.That(t, R3VectorAlmostEqual(viaMatrix, v, 1e-9), test.ShouldBeTrue)
}
