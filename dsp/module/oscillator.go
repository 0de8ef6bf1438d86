package module

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-daw/dsp/core"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSaw
	WaveTriangle
	WaveNoise
)

const (
	minOscFrequency     = 20.0
	maxOscFrequency     = 20000.0
	defaultOscFrequency = 440.0
	defaultOscAmplitude = 1.0
)

// ErrInvalidValue is returned when a parameter value is NaN or infinite.
var ErrInvalidValue = errors.New("module: invalid parameter value")

// Oscillator is a phase-accumulator tone generator.
//
// The phase advances by frequency/sampleRate per frame and wraps into
// [0, 1). Frequency and amplitude glide linearly across each block.
type Oscillator struct {
	sampleRate float64
	waveform   Waveform

	freq core.Ramp
	amp  core.Ramp

	phase float64
	note  int

	seed uint32
	rng  uint32
}

// NewOscillator creates a 440 Hz sine oscillator at full amplitude.
func NewOscillator(cfg core.ProcessorConfig) (*Oscillator, error) {
	if err := validateSampleRate(cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("oscillator: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &Oscillator{
		sampleRate: cfg.SampleRate,
		freq:       core.NewRamp(defaultOscFrequency),
		amp:        core.NewRamp(defaultOscAmplitude),
		note:       -1,
		seed:       seed,
		rng:        seed,
	}, nil
}

// Process renders the waveform into out; in is ignored.
func (o *Oscillator) Process(_, out core.Buffer) {
	n := out.Len()
	f0, fStep := o.freq.Begin(n)
	a0, aStep := o.amp.Begin(n)
	invRate := 1 / o.sampleRate

	for i := 0; i < n; i++ {
		fi := float64(i)
		s := o.next() * (a0 + aStep*fi)
		out.L[i] = s
		out.R[i] = s

		o.phase += (f0 + fStep*fi) * invRate
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}
	}

	o.freq.Commit()
	o.amp.Commit()
}

func (o *Oscillator) next() float64 {
	p := o.phase
	switch o.waveform {
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSaw:
		return 2*p - 1
	case WaveTriangle:
		return 4*math.Abs(p-0.5) - 1
	case WaveNoise:
		// xorshift32
		x := o.rng
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		o.rng = x
		return float64(x)/float64(math.MaxUint32)*2 - 1
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// SetParameter accepts "frequency" (Hz), "amplitude" (0..1) and
// "waveform" (0 sine, 1 square, 2 saw, 3 triangle, 4 noise).
func (o *Oscillator) SetParameter(name string, value float64) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("%w: oscillator.%s=%v", ErrInvalidValue, name, value)
	}
	switch name {
	case "frequency":
		o.freq.Set(core.Clamp(value, minOscFrequency, maxOscFrequency))
	case "amplitude":
		o.amp.Set(core.Clamp(value, 0, 1))
	case "waveform":
		o.waveform = Waveform(core.Clamp(math.Round(value), float64(WaveSine), float64(WaveNoise)))
	default:
		return unknownParameter("oscillator", name)
	}
	return nil
}

// Parameter returns the current target of a parameter.
func (o *Oscillator) Parameter(name string) (float64, error) {
	switch name {
	case "frequency":
		return o.freq.Target(), nil
	case "amplitude":
		return o.amp.Target(), nil
	case "waveform":
		return float64(o.waveform), nil
	default:
		return 0, unknownParameter("oscillator", name)
	}
}

// Span opens a buffer for the frequency and amplitude ramps.
func (o *Oscillator) Span(frames int) {
	o.freq.Span(frames)
	o.amp.Span(frames)
}

// Reset rewinds the phase and the noise generator and settles the ramps.
func (o *Oscillator) Reset() {
	o.phase = 0
	o.rng = o.seed
	o.freq.Jump(o.freq.Target())
	o.amp.Jump(o.amp.Target())
}

// NoteOn retunes the oscillator to the MIDI key (A4 = 69 = 440 Hz) and sets
// the amplitude from the velocity. A zero velocity acts as note off.
func (o *Oscillator) NoteOn(key, velocity uint8) {
	if velocity == 0 {
		o.NoteOff(key)
		return
	}
	o.note = int(key)
	o.freq.Set(core.Clamp(NoteFrequency(key), minOscFrequency, maxOscFrequency))
	o.amp.Set(float64(velocity) / 127)
}

// NoteOff silences the oscillator if key is the sounding note.
func (o *Oscillator) NoteOff(key uint8) {
	if o.note != int(key) {
		return
	}
	o.note = -1
	o.amp.Set(0)
}

// NoteFrequency converts a MIDI key to Hz in twelve-tone equal temperament.
func NoteFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}
	return nil
}
