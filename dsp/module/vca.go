package module

import (
	"fmt"

	"github.com/cwbudde/algo-daw/dsp/core"
)

const maxVCAGain = 2.0

// VCA scales its input by a gain that glides across each block.
type VCA struct {
	gain core.Ramp
}

// NewVCA creates a unity-gain VCA.
func NewVCA(core.ProcessorConfig) *VCA {
	return &VCA{gain: core.NewRamp(1)}
}

// Process applies the gain ramp.
func (v *VCA) Process(in, out core.Buffer) {
	n := out.Len()
	start, step := v.gain.Begin(n)
	for i := 0; i < n; i++ {
		g := start + step*float64(i)
		out.L[i] = in.L[i] * g
		out.R[i] = in.R[i] * g
	}
	v.gain.Commit()
}

// SetParameter accepts "gain" (0..2).
func (v *VCA) SetParameter(name string, value float64) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("%w: vca.%s=%v", ErrInvalidValue, name, value)
	}
	if name != "gain" {
		return unknownParameter("vca", name)
	}
	v.gain.Set(core.Clamp(value, 0, maxVCAGain))
	return nil
}

// Parameter returns the gain target.
func (v *VCA) Parameter(name string) (float64, error) {
	if name != "gain" {
		return 0, unknownParameter("vca", name)
	}
	return v.gain.Target(), nil
}

// Span opens a buffer for the gain ramp.
func (v *VCA) Span(frames int) {
	v.gain.Span(frames)
}

// Reset settles the gain ramp.
func (v *VCA) Reset() {
	v.gain.Jump(v.gain.Target())
}
