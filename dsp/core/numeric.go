package core

import "math"

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite reports whether every sample of b is finite.
func AllFinite(b Buffer) bool {
	for i := range b.L {
		// x-x is NaN for both NaN and ±Inf.
		if b.L[i]-b.L[i] != 0 || b.R[i]-b.R[i] != 0 {
			return false
		}
	}

	return true
}

// Sanitize returns v when finite, otherwise def.
func Sanitize(v, def float64) float64 {
	if !IsFinite(v) {
		return def
	}

	return v
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// Balance returns left/right gains for pan in [-1, 1] using a linear balance
// law: the centre position leaves both channels at unity.
func Balance(pan float64) (left, right float64) {
	pan = Clamp(pan, -1, 1)
	left, right = 1, 1
	if pan > 0 {
		left = 1 - pan
	} else if pan < 0 {
		right = 1 + pan
	}

	return left, right
}
