package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicSine(t *testing.T) {
	t.Parallel()
	s := DeterministicSine(1000, 48000, 1.0, 48)
	require.Len(t, s, 48)
	assert.InDelta(t, 0, s[0], 1e-15)
	assert.LessOrEqual(t, Peak(s), 1.0)
	assert.Equal(t, s, DeterministicSine(1000, 48000, 1.0, 48))
}

func TestDeterministicNoise(t *testing.T) {
	t.Parallel()
	a := DeterministicNoise(42, 1.0, 64)
	assert.Equal(t, a, DeterministicNoise(42, 1.0, 64))
	assert.NotEqual(t, a, DeterministicNoise(43, 1.0, 64))
}

func TestImpulseAndDC(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []float64{0, 0, 0, 1, 0}, Impulse(5, 3))
	assert.Equal(t, []float64{0, 0}, Impulse(2, 10))
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, DC(0.5, 3))
}

func TestStereoAndLeft(t *testing.T) {
	t.Parallel()
	b := Stereo([]float64{1, -2})
	assert.Equal(t, []float64{1, -2}, b.L)
	assert.Equal(t, []float64{1, -2}, b.R)
	assert.InDelta(t, 2, StereoPeak(b), 0)

	assert.Equal(t, []float64{1, 3}, Left([]float32{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{1, 2}, Left([]float32{1, 2}, 1))
}

func TestLevels(t *testing.T) {
	t.Parallel()
	assert.Zero(t, RMS(nil))
	assert.InDelta(t, 1/math.Sqrt2, RMS(DeterministicSine(100, 8000, 1, 8000)), 1e-9)

	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-15)
	_, err = MaxAbsDiff([]float64{1}, []float64{1, 2})
	assert.Error(t, err)

	RequireSilent(t, make([]float64, 4))
	RequireFinite(t, Stereo(DC(1, 4)))
}
