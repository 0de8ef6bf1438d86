package mixer

import (
	"math"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/module"
)

type stripSource int

const (
	sourceNone stripSource = iota
	sourceTrack
	sourceReturn
)

// Strip is the module behind Mixer nodes. Bound to a track (param "track")
// or a return (param "return") it applies that row's gain and pan with
// per-block ramps and records its peak. Unbound it sums its inputs
// unchanged.
type Strip struct {
	state  *State
	source stripSource
	index  int

	left, right core.Ramp
}

// NewStrip creates an unbound strip reading from state.
func NewStrip(state *State) *Strip {
	return &Strip{state: state, left: core.NewRamp(1), right: core.NewRamp(1)}
}

// Factory returns a module factory producing strips bound to state.
func Factory(state *State) module.Factory {
	return func(core.ProcessorConfig) (module.Module, error) {
		return NewStrip(state), nil
	}
}

// Process applies the row's gains.
func (s *Strip) Process(in, out core.Buffer) {
	out.CopyFrom(in)
	if s.source == sourceNone {
		return
	}

	l, r := s.targets()
	s.left.Set(l)
	s.right.Set(r)
	s.left.Apply(out.L)
	s.right.Apply(out.R)

	switch s.source {
	case sourceTrack:
		s.state.trackPeaks[s.index].Observe(out.L, out.R)
	case sourceReturn:
		s.state.returnPeaks[s.index].Observe(out.L, out.R)
	}
}

func (s *Strip) targets() (float64, float64) {
	var gain, pan float64
	switch s.source {
	case sourceTrack:
		gain = s.state.EffectiveGain(s.index)
		pan = s.state.tracks[s.index].Pan
	case sourceReturn:
		gain = s.state.returns[s.index].Volume
		pan = s.state.returns[s.index].Pan
	default:
		return 1, 1
	}
	l, r := core.Balance(pan)
	return gain * l, gain * r
}

// SetParameter accepts "track" or "return" with a row index. A negative
// index unbinds the strip.
func (s *Strip) SetParameter(name string, value float64) error {
	if !core.IsFinite(value) {
		return module.ErrInvalidValue
	}
	idx := int(math.Round(value))
	switch name {
	case "track":
		if idx < 0 {
			s.source = sourceNone
			return nil
		}
		if err := s.state.checkTrack(idx); err != nil {
			return err
		}
		s.source, s.index = sourceTrack, idx
	case "return":
		if idx < 0 {
			s.source = sourceNone
			return nil
		}
		if err := s.state.checkReturn(idx); err != nil {
			return err
		}
		s.source, s.index = sourceReturn, idx
	default:
		return module.ErrUnknownParameter
	}
	// binding jumps straight to the row gain
	l, r := s.targets()
	s.left.Jump(l)
	s.right.Jump(r)
	return nil
}

// Parameter reports the bound row; -1 when unbound or bound to the other
// kind.
func (s *Strip) Parameter(name string) (float64, error) {
	switch name {
	case "track":
		if s.source == sourceTrack {
			return float64(s.index), nil
		}
		return -1, nil
	case "return":
		if s.source == sourceReturn {
			return float64(s.index), nil
		}
		return -1, nil
	default:
		return 0, module.ErrUnknownParameter
	}
}

// Span opens a buffer for the gain ramps.
func (s *Strip) Span(frames int) {
	s.left.Span(frames)
	s.right.Span(frames)
}

// Reset settles the gain ramps.
func (s *Strip) Reset() {
	l, r := s.targets()
	s.left.Jump(l)
	s.right.Jump(r)
}
