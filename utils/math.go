// Package utils contains small numeric helpers shared across packages.
package utils

import (
	"math"
)

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Float64AlmostEqual returns whether the absolute difference of a and b is below epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// AbsInt64 returns the absolute value of n.
func AbsInt64(n int64) int64 {
	if n < 0 {
		return -1 * n
	}
	return n
}
