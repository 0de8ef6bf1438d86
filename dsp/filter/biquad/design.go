package biquad

import (
	"errors"
	"fmt"
	"math"
)

// Type selects the response shape of a designed section.
type Type int

const (
	Lowpass Type = iota
	Highpass
	Bandpass
	Notch
)

// ErrInvalidDesign is returned for out-of-range design parameters.
var ErrInvalidDesign = errors.New("biquad: invalid design parameters")

var typeNames = [...]string{"lowpass", "highpass", "bandpass", "notch"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t names a known response.
func (t Type) Valid() bool {
	return t >= Lowpass && t <= Notch
}

// Design computes normalised RBJ coefficients for the given response at
// freq (Hz) with quality factor q. freq must lie in (0, sampleRate/2) and
// q must be positive.
func Design(t Type, freq, q, sampleRate float64) (Coefficients, error) {
	if !t.Valid() {
		return Identity(), fmt.Errorf("%w: type %d", ErrInvalidDesign, int(t))
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return Identity(), fmt.Errorf("%w: sample rate %f", ErrInvalidDesign, sampleRate)
	}
	if freq <= 0 || freq >= sampleRate/2 || math.IsNaN(freq) {
		return Identity(), fmt.Errorf("%w: frequency %f", ErrInvalidDesign, freq)
	}
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return Identity(), fmt.Errorf("%w: q %f", ErrInvalidDesign, q)
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	var b0, b1, b2 float64
	switch t {
	case Lowpass:
		b0 = (1 - cw) / 2
		b1 = 1 - cw
		b2 = (1 - cw) / 2
	case Highpass:
		b0 = (1 + cw) / 2
		b1 = -(1 + cw)
		b2 = (1 + cw) / 2
	case Bandpass:
		// constant 0 dB peak gain
		b0 = alpha
		b1 = 0
		b2 = -alpha
	case Notch:
		b0 = 1
		b1 = -2 * cw
		b2 = 1
	}

	return Normalize(b0, b1, b2, a0, a1, a2)
}
