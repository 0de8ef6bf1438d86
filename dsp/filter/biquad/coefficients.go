package biquad

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrInvalidCoefficients is returned when a0 is zero or a coefficient is not finite.
var ErrInvalidCoefficients = errors.New("biquad: invalid coefficients")

// Coefficients holds the transfer function of one second-order section:
//
//	H(z) = (B0 + B1 z^-1 + B2 z^-2) / (A0 + A1 z^-1 + A2 z^-2)
//
// Values produced by [Normalize] and [Design] always carry A0 == 1.
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A0, A1, A2 float64 // feedback (denominator)
}

// Identity returns a pass-through section.
func Identity() Coefficients {
	return Coefficients{B0: 1, A0: 1}
}

// Normalize divides every coefficient by a0.
func Normalize(b0, b1, b2, a0, a1, a2 float64) (Coefficients, error) {
	if a0 == 0 {
		return Identity(), fmt.Errorf("%w: a0 is zero", ErrInvalidCoefficients)
	}

	c := Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A0: 1,
		A1: a1 / a0,
		A2: a2 / a0,
	}
	for _, v := range [...]float64{c.B0, c.B1, c.B2, c.A1, c.A2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Identity(), fmt.Errorf("%w: non-finite value", ErrInvalidCoefficients)
		}
	}

	return c, nil
}

// Response computes the complex frequency response H(e^jw) at freqHz.
func (c Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	ejw := cmplx.Exp(complex(0, -w))
	ej2w := cmplx.Exp(complex(0, -2*w))

	num := complex(c.B0, 0) + complex(c.B1, 0)*ejw + complex(c.B2, 0)*ej2w
	den := complex(c.A0, 0) + complex(c.A1, 0)*ejw + complex(c.A2, 0)*ej2w
	return num / den
}

// MagnitudeDB returns 20*log10(|H(f)|).
func (c Coefficients) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(c.Response(freqHz, sampleRate)))
}

// Stable reports whether both poles lie strictly inside the unit circle
// (stability triangle test on the normalised denominator).
func (c Coefficients) Stable() bool {
	return math.Abs(c.A2) < 1 && math.Abs(c.A1) < 1+c.A2
}
