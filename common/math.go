package common

import (
	"math"
)

// Clamp bounds v to the inclusive range [lo, hi]. NaN clamps to lo.
//
// Parameters:
//   - v: the value to clamp
//   - lo: lower bound
//   - hi: upper bound (must be >= lo)
//
// Returns:
//   - T: v limited to [lo, hi]
func Clamp[T ~float32 | ~float64 | ~int](v, lo, hi T) T {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SmoothStep performs Hermite interpolation between 0 and 1 as x moves from edge0 to edge1,
// matching the WGSL builtin for edge0 < edge1. When the edges collapse or invert it degrades
// to a hard step at edge0 instead of dividing by zero.
func SmoothStep(edge0, edge1, x float32) float32 {
	if edge0 >= edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Fract returns the fractional part of x as x - floor(x), so the result is always in [0, 1).
func Fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}
