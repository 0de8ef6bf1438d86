package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-daw/dsp/core"
)

// Peak returns the largest absolute sample of x.
func Peak(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// StereoPeak returns the largest absolute sample over both channels.
func StereoPeak(b core.Buffer) float64 {
	return math.Max(Peak(b.L), Peak(b.R))
}

// RMS returns the root mean square of x, 0 when empty.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RequireSilent fails t at the first non-zero sample.
func RequireSilent(t *testing.T, x []float64) {
	t.Helper()
	for i, v := range x {
		if v != 0 {
			t.Fatalf("index %d: got %v, want exact silence", i, v)
		}
	}
}

// RequireFinite fails t if any sample of b is NaN or Inf.
func RequireFinite(t *testing.T, b core.Buffer) {
	t.Helper()
	for i := range b.L {
		if !core.IsFinite(b.L[i]) || !core.IsFinite(b.R[i]) {
			t.Fatalf("frame %d: non-finite (%v, %v)", i, b.L[i], b.R[i])
		}
	}
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
// Returns an error if the slices differ in length.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	maxDiff := 0.0
	for i := range a {
		maxDiff = math.Max(maxDiff, math.Abs(a[i]-b[i]))
	}
	return maxDiff, nil
}
