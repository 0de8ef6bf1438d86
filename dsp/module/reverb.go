package module

import (
	"fmt"

	"github.com/cwbudde/algo-daw/dsp/core"
)

const (
	reverbNumCombs     = 4
	reverbNumAllpasses = 2

	// Tuning values calibrated for 44.1 kHz.
	reverbCombTuning1 = 1116
	reverbCombTuning2 = 1188
	reverbCombTuning3 = 1277
	reverbCombTuning4 = 1356

	reverbAllpassTuning1 = 556
	reverbAllpassTuning2 = 441

	reverbStereoSpread = 23
	reverbTuningRate   = 44100.0

	defaultReverbFeedback = 0.84
	maxReverbFeedback     = 0.98
	defaultReverbMix      = 0.3
	reverbAllpassFeedback = 0.5
)

// Reverb is a Schroeder reverberator: four parallel feedback combs averaged,
// then two series all-pass diffusers. The right channel uses delay lengths
// offset by a small spread for stereo width.
type Reverb struct {
	mix      float64
	feedback float64
	damp     float64

	left, right reverbChannel
}

type reverbChannel struct {
	combs   [reverbNumCombs]reverbComb
	allpass [reverbNumAllpasses]reverbAllpass
}

type reverbComb struct {
	feedback    float64
	filterStore float64
	dampA       float64
	dampB       float64
	buffer      []float64
	index       int
}

type reverbAllpass struct {
	feedback float64
	buffer   []float64
	index    int
}

// NewReverb creates a reverb with the comb feedback at 0.84 and no damping.
func NewReverb(cfg core.ProcessorConfig) (*Reverb, error) {
	if err := validateSampleRate(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}
	r := &Reverb{
		mix:   defaultReverbMix,
		left:  newReverbChannel(cfg.SampleRate, 0),
		right: newReverbChannel(cfg.SampleRate, reverbStereoSpread),
	}
	r.setFeedback(defaultReverbFeedback)
	r.setDamp(0)
	return r, nil
}

func newReverbChannel(sampleRate float64, spread int) reverbChannel {
	scale := func(n int) int {
		return max(1, int(float64(n+spread)*sampleRate/reverbTuningRate))
	}
	ch := reverbChannel{
		combs: [reverbNumCombs]reverbComb{
			{buffer: make([]float64, scale(reverbCombTuning1))},
			{buffer: make([]float64, scale(reverbCombTuning2))},
			{buffer: make([]float64, scale(reverbCombTuning3))},
			{buffer: make([]float64, scale(reverbCombTuning4))},
		},
		allpass: [reverbNumAllpasses]reverbAllpass{
			{feedback: reverbAllpassFeedback, buffer: make([]float64, scale(reverbAllpassTuning1))},
			{feedback: reverbAllpassFeedback, buffer: make([]float64, scale(reverbAllpassTuning2))},
		},
	}
	return ch
}

func (c *reverbComb) process(input float64) float64 {
	output := c.buffer[c.index]
	c.filterStore = core.FlushDenormals(output*c.dampB + c.filterStore*c.dampA)
	c.buffer[c.index] = core.FlushDenormals(input + c.filterStore*c.feedback)
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

func (a *reverbAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	output := bufOut - input
	a.buffer[a.index] = core.FlushDenormals(input + bufOut*a.feedback)
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return output
}

func (ch *reverbChannel) process(x float64) float64 {
	var acc float64
	for i := range ch.combs {
		acc += ch.combs[i].process(x)
	}
	acc *= 1.0 / reverbNumCombs
	for i := range ch.allpass {
		acc = ch.allpass[i].process(acc)
	}
	return acc
}

func (ch *reverbChannel) reset() {
	for i := range ch.combs {
		core.Zero(ch.combs[i].buffer)
		ch.combs[i].index = 0
		ch.combs[i].filterStore = 0
	}
	for i := range ch.allpass {
		core.Zero(ch.allpass[i].buffer)
		ch.allpass[i].index = 0
	}
}

// Process renders one block.
func (r *Reverb) Process(in, out core.Buffer) {
	dry := 1 - r.mix
	for i := 0; i < out.Len(); i++ {
		xl := in.L[i]
		xr := in.R[i]
		out.L[i] = xl*dry + r.left.process(xl)*r.mix
		out.R[i] = xr*dry + r.right.process(xr)*r.mix
	}
}

// SetParameter accepts "mix" (0..1), "feedback" (comb feedback, 0..0.98)
// and "damp" (0..1).
func (r *Reverb) SetParameter(name string, value float64) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("%w: reverb.%s=%v", ErrInvalidValue, name, value)
	}
	switch name {
	case "mix":
		r.mix = core.Clamp(value, 0, 1)
	case "feedback":
		r.setFeedback(value)
	case "damp":
		r.setDamp(value)
	default:
		return unknownParameter("reverb", name)
	}
	return nil
}

// Parameter returns the current value of a parameter.
func (r *Reverb) Parameter(name string) (float64, error) {
	switch name {
	case "mix":
		return r.mix, nil
	case "feedback":
		return r.feedback, nil
	case "damp":
		return r.damp, nil
	default:
		return 0, unknownParameter("reverb", name)
	}
}

// Reset clears all comb and all-pass memory.
func (r *Reverb) Reset() {
	r.left.reset()
	r.right.reset()
}

func (r *Reverb) setFeedback(v float64) {
	r.feedback = core.Clamp(v, 0, maxReverbFeedback)
	for _, ch := range []*reverbChannel{&r.left, &r.right} {
		for i := range ch.combs {
			ch.combs[i].feedback = r.feedback
		}
	}
}

func (r *Reverb) setDamp(v float64) {
	r.damp = core.Clamp(v, 0, 1)
	for _, ch := range []*reverbChannel{&r.left, &r.right} {
		for i := range ch.combs {
			ch.combs[i].dampA = r.damp
			ch.combs[i].dampB = 1 - r.damp
		}
	}
}
