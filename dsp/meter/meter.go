// Package meter accumulates peak and RMS levels over stereo blocks between
// reads.
package meter

import (
	"math"

	"github.com/cwbudde/algo-daw/dsp/core"
)

// Meter accumulates levels for one stereo signal. It is owned by a single
// goroutine; Take returns the levels since the previous Take and restarts
// the window.
type Meter struct {
	peak   float64
	sumSq  float64
	frames int
}

// Add accumulates one block. l and r must have the same length.
func (m *Meter) Add(l, r []float64) {
	peak := m.peak
	sumSq := m.sumSq
	for i := range l {
		a := math.Abs(l[i])
		b := math.Abs(r[i])
		if a > peak {
			peak = a
		}
		if b > peak {
			peak = b
		}
		sumSq += l[i]*l[i] + r[i]*r[i]
	}
	m.peak = peak
	m.sumSq = sumSq
	m.frames += len(l)
}

// Peak returns the highest absolute sample seen in the current window.
func (m *Meter) Peak() float64 { return m.peak }

// RMS returns the root-mean-square over both channels of the current window.
func (m *Meter) RMS() float64 {
	if m.frames == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(2*m.frames))
}

// Take returns the current peak and RMS and resets the window.
func (m *Meter) Take() (peak, rms float64) {
	peak, rms = m.peak, m.RMS()
	m.Reset()
	return peak, rms
}

// Reset clears the window.
func (m *Meter) Reset() {
	*m = Meter{}
}

// PeakHold tracks a single peak value, used for per-strip meters.
type PeakHold float64

// Observe raises the hold to the block peak of l and r.
func (p *PeakHold) Observe(l, r []float64) {
	v := float64(*p)
	for i := range l {
		v = math.Max(v, math.Max(math.Abs(l[i]), math.Abs(r[i])))
	}
	*p = PeakHold(v)
}

// Take returns the held peak and clears it.
func (p *PeakHold) Take() float64 {
	v := float64(*p)
	*p = 0
	return v
}

// ToDB converts a linear level to dBFS with a floor at -120 dB.
func ToDB(level float64) float64 {
	if level <= 1e-6 {
		return -120
	}
	return core.LinearToDB(level)
}
