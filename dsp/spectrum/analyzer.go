package spectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// DefaultSize is the FFT length used for snapshot spectra; it yields 256 bins.
const DefaultSize = 512

// ErrInvalidSize is returned for FFT sizes that are not a power of two >= 4.
var ErrInvalidSize = errors.New("spectrum: size must be a power of two >= 4")

// Analyzer keeps the most recent Size samples of a mono signal and reports
// their Hann-windowed magnitude spectrum.
//
// Push and Bins never allocate. A full-scale sine centred on a bin reads as
// magnitude 1.
type Analyzer struct {
	size   int
	window []float64
	norm   float64
	plan   *algofft.Plan[complex128]

	ring   []float64
	write  int
	filled int

	frame   []float64
	in, out []complex128
	re, im  []float64
	mag     []float64
}

// NewAnalyzer allocates an analyzer for the given FFT size.
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < 4 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: init fft plan: %w", err)
	}

	win := make([]float64, size)
	sum := 0.0
	for i := range win {
		// periodic Hann
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
		sum += win[i]
	}

	bins := size / 2
	return &Analyzer{
		size:   size,
		window: win,
		norm:   sum,
		plan:   plan,
		ring:   make([]float64, size),
		frame:  make([]float64, size),
		in:     make([]complex128, size),
		out:    make([]complex128, size),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		mag:    make([]float64, bins),
	}, nil
}

// Size returns the FFT length.
func (a *Analyzer) Size() int { return a.size }

// NumBins returns the number of magnitude bins, Size/2.
func (a *Analyzer) NumBins() int { return a.size / 2 }

// Ready reports whether a full frame of samples has been pushed.
func (a *Analyzer) Ready() bool { return a.filled >= a.size }

// Push appends samples to the analysis ring.
func (a *Analyzer) Push(samples []float64) {
	if len(samples) > a.size {
		samples = samples[len(samples)-a.size:]
	}
	for _, x := range samples {
		a.ring[a.write] = x
		a.write++
		if a.write == a.size {
			a.write = 0
		}
	}
	a.filled = min(a.filled+len(samples), a.size)
}

// Reset clears the ring.
func (a *Analyzer) Reset() {
	clear(a.ring)
	a.write = 0
	a.filled = 0
}

// Bins writes linear magnitudes of the first len(dst) bins into dst.
// Bins beyond NumBins are zeroed. Before the ring has filled, the missing
// history counts as silence.
func (a *Analyzer) Bins(dst []float32) error {
	n := copy(a.frame, a.ring[a.write:])
	copy(a.frame[n:], a.ring[:a.write])
	vecmath.MulBlockInPlace(a.frame, a.window)

	for i, x := range a.frame {
		a.in[i] = complex(x, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return fmt.Errorf("spectrum: forward fft: %w", err)
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	scale := 2 / a.norm
	for k := range dst {
		if k >= len(a.mag) {
			dst[k] = 0
			continue
		}
		m := a.mag[k] * scale
		if k == 0 {
			m *= 0.5
		}
		dst[k] = float32(m)
	}
	return nil
}

// BinFrequency returns the centre frequency of bin k in Hz.
func (a *Analyzer) BinFrequency(k int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(a.size)
}
