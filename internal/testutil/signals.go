package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-daw/dsp/core"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Stereo builds a buffer with the same signal on both channels.
func Stereo(mono []float64) core.Buffer {
	b := core.NewBuffer(len(mono))
	copy(b.L, mono)
	copy(b.R, mono)
	return b
}

// Left extracts channel 0 from interleaved samples.
func Left(interleaved []float32, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	out := make([]float64, 0, len(interleaved)/channels)
	for i := 0; i < len(interleaved); i += channels {
		out = append(out, float64(interleaved[i]))
	}
	return out
}
