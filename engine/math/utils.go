package math

import (
	stdmath "math"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Lerp linearly interpolates between a and b.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// Wrap folds t into [0, length). A non-positive length yields 0.
func Wrap[T constraints.Float](t, length T) T {
	if length <= 0 {
		return 0
	}
	t = T(stdmath.Mod(float64(t), float64(length)))
	if t < 0 {
		t += length
	}
	if t >= length {
		return 0
	}
	return t
}
