package module

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/filter/biquad"
)

const (
	minFilterCutoff     = 20.0
	maxFilterCutoffRel  = 0.45
	minFilterResonance  = 0.1
	maxFilterResonance  = 20.0
	defaultFilterCutoff = 1000.0
	defaultFilterQ      = 0.707
	// cutoff glides are rendered in chunks of this many frames, with fresh
	// coefficients per chunk
	filterGlideChunk = 32
)

// Filter is a stereo biquad with runtime selectable response.
type Filter struct {
	sampleRate float64
	typ        biquad.Type
	cutoff     core.Ramp
	resonance  float64

	coeffs      biquad.Coefficients
	left, right biquad.Section
}

// NewFilter creates a 1 kHz low-pass with Q 0.707.
func NewFilter(cfg core.ProcessorConfig) (*Filter, error) {
	if err := validateSampleRate(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	f := &Filter{
		sampleRate: cfg.SampleRate,
		typ:        biquad.Lowpass,
		cutoff:     core.NewRamp(core.Clamp(defaultFilterCutoff, minFilterCutoff, maxFilterCutoffRel*cfg.SampleRate)),
		resonance:  defaultFilterQ,
	}
	if err := f.redesign(f.cutoff.Current()); err != nil {
		return nil, err
	}
	return f, nil
}

// Process filters in into out.
func (f *Filter) Process(in, out core.Buffer) {
	n := out.Len()
	start, step := f.cutoff.Begin(n)
	if step == 0 {
		f.left.ProcessBlock(out.L, in.L[:n])
		f.right.ProcessBlock(out.R, in.R[:n])
		f.cutoff.Commit()
		return
	}

	for off := 0; off < n; off += filterGlideChunk {
		end := min(off+filterGlideChunk, n)
		_ = f.redesign(start + step*float64(off))
		f.left.ProcessBlock(out.L[off:end], in.L[off:end])
		f.right.ProcessBlock(out.R[off:end], in.R[off:end])
	}
	f.cutoff.Commit()
	_ = f.redesign(f.cutoff.Current())
}

// SetParameter accepts "cutoff" (Hz), "resonance" (Q) and "type"
// (0 low-pass, 1 high-pass, 2 band-pass, 3 notch).
func (f *Filter) SetParameter(name string, value float64) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("%w: filter.%s=%v", ErrInvalidValue, name, value)
	}
	switch name {
	case "cutoff":
		f.cutoff.Set(core.Clamp(value, minFilterCutoff, maxFilterCutoffRel*f.sampleRate))
		return nil
	case "resonance":
		f.resonance = core.Clamp(value, minFilterResonance, maxFilterResonance)
	case "type":
		f.typ = biquad.Type(core.Clamp(math.Round(value), float64(biquad.Lowpass), float64(biquad.Notch)))
	default:
		return unknownParameter("filter", name)
	}
	return f.redesign(f.cutoff.Current())
}

// Parameter returns the current value of a parameter.
func (f *Filter) Parameter(name string) (float64, error) {
	switch name {
	case "cutoff":
		return f.cutoff.Target(), nil
	case "resonance":
		return f.resonance, nil
	case "type":
		return float64(f.typ), nil
	default:
		return 0, unknownParameter("filter", name)
	}
}

// Coefficients returns the coefficients in use.
func (f *Filter) Coefficients() biquad.Coefficients {
	return f.coeffs
}

// Span opens a buffer for the cutoff glide.
func (f *Filter) Span(frames int) {
	f.cutoff.Span(frames)
}

// Reset clears the filter history of both channels.
func (f *Filter) Reset() {
	f.left.Reset()
	f.right.Reset()
	f.cutoff.Jump(f.cutoff.Target())
	_ = f.redesign(f.cutoff.Current())
}

func (f *Filter) redesign(cutoff float64) error {
	c, err := biquad.Design(f.typ, cutoff, f.resonance, f.sampleRate)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	f.coeffs = c
	f.left.SetCoefficients(c)
	f.right.SetCoefficients(c)
	return nil
}
