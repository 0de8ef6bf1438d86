package module

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-daw/dsp/core"
)

const (
	defaultDelayTimeSeconds = 0.25
	defaultDelayFeedback    = 0.35
	defaultDelayMix         = 0.25
	defaultMaxDelaySeconds  = 2.0
	minDelayTimeSeconds     = 0.001
	maxDelayFeedback        = 0.99
)

// Delay is a stereo feedback delay with dry/wet mix.
//
// Each channel owns a circular buffer sized for the configured maximum delay.
// The tap is read delaySamples behind the write pointer; the input plus the
// tap scaled by feedback is written back. Feedback is capped at 0.99 so the
// loop gain stays below one and the output remains bounded.
type Delay struct {
	sampleRate   float64
	maxSeconds   float64
	delaySeconds float64
	feedback     float64
	mix          float64

	delaySamples int
	left, right  []float64
	write        int
}

// NewDelay creates a delay with practical defaults.
func NewDelay(cfg core.ProcessorConfig) (*Delay, error) {
	if err := validateSampleRate(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}
	maxSeconds := cfg.MaxDelaySeconds
	if maxSeconds <= 0 || math.IsNaN(maxSeconds) || math.IsInf(maxSeconds, 0) {
		maxSeconds = defaultMaxDelaySeconds
	}
	size := int(math.Ceil(maxSeconds*cfg.SampleRate)) + 1
	d := &Delay{
		sampleRate: cfg.SampleRate,
		maxSeconds: maxSeconds,
		feedback:   defaultDelayFeedback,
		mix:        defaultDelayMix,
		left:       make([]float64, size),
		right:      make([]float64, size),
	}
	d.setTime(defaultDelayTimeSeconds)
	return d, nil
}

// Process runs the delay line over one block.
func (d *Delay) Process(in, out core.Buffer) {
	n := out.Len()
	size := len(d.left)
	dry := 1 - d.mix

	for i := 0; i < n; i++ {
		read := d.write - d.delaySamples
		if read < 0 {
			read += size
		}

		dl := d.left[read]
		dr := d.right[read]
		xl := in.L[i]
		xr := in.R[i]

		d.left[d.write] = core.FlushDenormals(xl + dl*d.feedback)
		d.right[d.write] = core.FlushDenormals(xr + dr*d.feedback)

		d.write++
		if d.write >= size {
			d.write = 0
		}

		out.L[i] = xl*dry + dl*d.mix
		out.R[i] = xr*dry + dr*d.mix
	}
}

// SetParameter accepts "time" (seconds), "feedback" (0..0.99) and "mix" (0..1).
// Out-of-range values are clamped.
func (d *Delay) SetParameter(name string, value float64) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("%w: delay.%s=%v", ErrInvalidValue, name, value)
	}
	switch name {
	case "time":
		d.setTime(value)
	case "feedback":
		d.feedback = core.Clamp(value, 0, maxDelayFeedback)
	case "mix":
		d.mix = core.Clamp(value, 0, 1)
	default:
		return unknownParameter("delay", name)
	}
	return nil
}

// Parameter returns the current value of a parameter.
func (d *Delay) Parameter(name string) (float64, error) {
	switch name {
	case "time":
		return d.delaySeconds, nil
	case "feedback":
		return d.feedback, nil
	case "mix":
		return d.mix, nil
	default:
		return 0, unknownParameter("delay", name)
	}
}

// DelaySamples returns the tap distance in samples.
func (d *Delay) DelaySamples() int { return d.delaySamples }

// Reset clears delay state.
func (d *Delay) Reset() {
	core.Zero(d.left)
	core.Zero(d.right)
	d.write = 0
}

func (d *Delay) setTime(seconds float64) {
	seconds = core.Clamp(seconds, minDelayTimeSeconds, d.maxSeconds)
	d.delaySeconds = seconds

	samples := int(math.Round(seconds * d.sampleRate))
	d.delaySamples = max(1, min(samples, len(d.left)-1))
}
