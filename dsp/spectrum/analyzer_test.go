package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, freq, sampleRate, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

func TestNewAnalyzerRejectsBadSizes(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 2, 3, 100, 513} {
		_, err := NewAnalyzer(size)
		assert.ErrorIs(t, err, ErrInvalidSize, "size %d", size)
	}
}

func TestAnalyzerPeaksAtToneBin(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	a, err := NewAnalyzer(DefaultSize)
	require.NoError(t, err)
	require.Equal(t, 256, a.NumBins())

	// bin 32 centre
	freq := a.BinFrequency(32, sampleRate)
	a.Push(sine(2048, freq, sampleRate, 0.5))
	require.True(t, a.Ready())

	bins := make([]float32, 256)
	require.NoError(t, a.Bins(bins))

	best := 0
	for k := range bins {
		if bins[k] > bins[best] {
			best = k
		}
	}
	assert.Equal(t, 32, best)
	assert.InDelta(t, 0.5, bins[32], 0.01)
	assert.Less(t, bins[100], float32(1e-3))
}

func TestAnalyzerSilenceAndPartialFill(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(64)
	require.NoError(t, err)

	bins := make([]float32, 40)
	require.NoError(t, a.Bins(bins))
	for _, b := range bins {
		assert.Zero(t, b)
	}

	a.Push([]float64{1, 1, 1})
	assert.False(t, a.Ready())

	a.Reset()
	require.NoError(t, a.Bins(bins))
	assert.Zero(t, bins[0])
}

func TestAnalyzerPushKeepsNewestSamples(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(8)
	require.NoError(t, err)

	long := make([]float64, 20)
	for i := range long {
		long[i] = float64(i)
	}
	a.Push(long)
	assert.True(t, a.Ready())

	frame := append(append([]float64(nil), a.ring[a.write:]...), a.ring[:a.write]...)
	assert.Equal(t, long[12:], frame)
}

func TestToneLevel(t *testing.T) {
	t.Parallel()

	const sampleRate = 44100.0
	x := sine(4410, 1000, sampleRate, 0.8)

	level, err := ToneLevel(x, 1000, sampleRate)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, level, 0.01)

	off, err := ToneLevel(x, 5000, sampleRate)
	require.NoError(t, err)
	assert.Less(t, off, 0.01)

	_, err = ToneLevel(x, 30000, sampleRate)
	assert.Error(t, err)
	_, err = NewGoertzel(100, 0)
	assert.Error(t, err)
}
