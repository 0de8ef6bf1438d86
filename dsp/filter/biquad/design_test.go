package biquad

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesignNormalizesA0AcrossRange(t *testing.T) {
	t.Parallel()

	const sampleRate = 44100.0
	types := []Type{Lowpass, Highpass, Bandpass, Notch}
	freqs := []float64{20, 100, 440, 1000, 5000, 12000, 0.45 * sampleRate}
	qs := []float64{0.1, 0.5, 0.707, 1, 4, 10, 20}

	for _, typ := range types {
		for _, f := range freqs {
			for _, q := range qs {
				c, err := Design(typ, f, q, sampleRate)
				require.NoError(t, err, "%s f=%v q=%v", typ, f, q)
				assert.InDelta(t, 1.0, c.A0, 1e-15, "%s f=%v q=%v", typ, f, q)
				assert.True(t, c.Stable(), "%s f=%v q=%v unstable: %+v", typ, f, q, c)
			}
		}
	}
}

func TestDesignResponseShapes(t *testing.T) {
	t.Parallel()

	const fs = 48000.0
	const fc = 1000.0

	tests := []struct {
		name  string
		typ   Type
		freq  float64
		check func(t *testing.T, db float64)
	}{
		{"lowpass passes DC", Lowpass, 20, func(t *testing.T, db float64) { assert.InDelta(t, 0, db, 0.1) }},
		{"lowpass rejects highs", Lowpass, 10000, func(t *testing.T, db float64) { assert.Less(t, db, -30.0) }},
		{"highpass rejects lows", Highpass, 50, func(t *testing.T, db float64) { assert.Less(t, db, -40.0) }},
		{"highpass passes highs", Highpass, 15000, func(t *testing.T, db float64) { assert.InDelta(t, 0, db, 0.2) }},
		{"bandpass unity at centre", Bandpass, fc, func(t *testing.T, db float64) { assert.InDelta(t, 0, db, 1e-6) }},
		{"notch nulls centre", Notch, fc, func(t *testing.T, db float64) { assert.Less(t, db, -100.0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := Design(tt.typ, fc, 0.707, fs)
			require.NoError(t, err)
			tt.check(t, c.MagnitudeDB(tt.freq, fs))
		})
	}
}

func TestDesignRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ     Type
		f, q, s float64
	}{
		{Type(9), 1000, 1, 48000},
		{Lowpass, 0, 1, 48000},
		{Lowpass, 24000, 1, 48000},
		{Lowpass, 1000, 0, 48000},
		{Lowpass, 1000, 1, 0},
		{Lowpass, math.NaN(), 1, 48000},
	}
	for _, c := range cases {
		coeffs, err := Design(c.typ, c.f, c.q, c.s)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDesign))
		assert.Equal(t, Identity(), coeffs)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	c, err := Normalize(2, 4, 6, 2, 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, Coefficients{B0: 1, B1: 2, B2: 3, A0: 1, A1: 0.5, A2: 0.25}, c)

	_, err = Normalize(1, 0, 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidCoefficients)

	_, err = Normalize(math.Inf(1), 0, 0, 1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidCoefficients)
}

func TestTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "notch", Notch.String())
	assert.Equal(t, "Type(7)", Type(7).String())
}
