// Package mixer holds the mixer settings applied on the audio goroutine and
// the Strip module that Mixer nodes use to apply them.
package mixer

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/meter"
)

// ErrNoSuchChannel is returned for a track or return index out of range.
var ErrNoSuchChannel = errors.New("mixer: no such channel")

const (
	// MaxTrackVolume is the upper track and return volume.
	MaxTrackVolume = 2.0
	// MaxMasterVolume is the upper master volume.
	MaxMasterVolume = 1.0
)

// Track is one channel strip row.
type Track struct {
	Volume float64
	Pan    float64
	Mute   bool
	Solo   bool
	Arm    bool
}

// Return is one effect return row.
type Return struct {
	Volume float64
	Pan    float64
}

// Master is the master bus row.
type Master struct {
	Volume float64
	Pan    float64
	Mute   bool
}

// State is the mixer owned by the audio goroutine.
//
// The effective gain of track i is 0 when it is muted, its volume when no
// track is soloed or it is soloed itself, and 0 otherwise. The table is
// rebuilt by every setter, never per sample.
type State struct {
	tracks    []Track
	returns   []Return
	master    Master
	effective []float64
	anySolo   bool

	trackPeaks  []meter.PeakHold
	returnPeaks []meter.PeakHold
}

// NewState creates a mixer with the given track and return counts; every
// volume starts at unity and every pan at centre.
func NewState(tracks, returns int) *State {
	s := &State{
		tracks:      make([]Track, max(tracks, 0)),
		returns:     make([]Return, max(returns, 0)),
		master:      Master{Volume: 1},
		effective:   make([]float64, max(tracks, 0)),
		trackPeaks:  make([]meter.PeakHold, max(tracks, 0)),
		returnPeaks: make([]meter.PeakHold, max(returns, 0)),
	}
	for i := range s.tracks {
		s.tracks[i].Volume = 1
	}
	for i := range s.returns {
		s.returns[i].Volume = 1
	}
	s.recompute()
	return s
}

// NumTracks returns the track count.
func (s *State) NumTracks() int { return len(s.tracks) }

// NumReturns returns the return count.
func (s *State) NumReturns() int { return len(s.returns) }

// Track returns a copy of track i.
func (s *State) Track(i int) (Track, error) {
	if err := s.checkTrack(i); err != nil {
		return Track{}, err
	}
	return s.tracks[i], nil
}

// Return returns a copy of return i.
func (s *State) Return(i int) (Return, error) {
	if err := s.checkReturn(i); err != nil {
		return Return{}, err
	}
	return s.returns[i], nil
}

// Master returns the master row.
func (s *State) Master() Master { return s.master }

// EffectiveGain returns the gain track i contributes after mute and solo.
func (s *State) EffectiveGain(i int) float64 {
	if i < 0 || i >= len(s.effective) {
		return 0
	}
	return s.effective[i]
}

// SetTrackVolume clamps v to [0, 2].
func (s *State) SetTrackVolume(i int, v float64) error {
	if err := s.checkTrack(i); err != nil {
		return err
	}
	s.tracks[i].Volume = core.Clamp(core.Sanitize(v, 1), 0, MaxTrackVolume)
	s.recompute()
	return nil
}

// SetTrackPan clamps v to [-1, 1].
func (s *State) SetTrackPan(i int, v float64) error {
	if err := s.checkTrack(i); err != nil {
		return err
	}
	s.tracks[i].Pan = core.Clamp(core.Sanitize(v, 0), -1, 1)
	return nil
}

// SetTrackMute mutes or unmutes track i.
func (s *State) SetTrackMute(i int, muted bool) error {
	if err := s.checkTrack(i); err != nil {
		return err
	}
	s.tracks[i].Mute = muted
	s.recompute()
	return nil
}

// SetTrackSolo solos or unsolos track i.
func (s *State) SetTrackSolo(i int, soloed bool) error {
	if err := s.checkTrack(i); err != nil {
		return err
	}
	s.tracks[i].Solo = soloed
	s.recompute()
	return nil
}

// SetTrackArm arms or disarms track i for recording.
func (s *State) SetTrackArm(i int, armed bool) error {
	if err := s.checkTrack(i); err != nil {
		return err
	}
	s.tracks[i].Arm = armed
	return nil
}

// SetReturnVolume clamps v to [0, 2].
func (s *State) SetReturnVolume(i int, v float64) error {
	if err := s.checkReturn(i); err != nil {
		return err
	}
	s.returns[i].Volume = core.Clamp(core.Sanitize(v, 1), 0, MaxTrackVolume)
	return nil
}

// SetReturnPan clamps v to [-1, 1].
func (s *State) SetReturnPan(i int, v float64) error {
	if err := s.checkReturn(i); err != nil {
		return err
	}
	s.returns[i].Pan = core.Clamp(core.Sanitize(v, 0), -1, 1)
	return nil
}

// SetMasterVolume clamps v to [0, 1].
func (s *State) SetMasterVolume(v float64) {
	s.master.Volume = core.Clamp(core.Sanitize(v, 1), 0, MaxMasterVolume)
}

// SetMasterPan clamps v to [-1, 1].
func (s *State) SetMasterPan(v float64) {
	s.master.Pan = core.Clamp(core.Sanitize(v, 0), -1, 1)
}

// SetMasterMute mutes or unmutes the master bus.
func (s *State) SetMasterMute(muted bool) {
	s.master.Mute = muted
}

// TakeTrackPeaks copies and clears the per-track peaks. dst must hold
// NumTracks values.
func (s *State) TakeTrackPeaks(dst []float32) {
	for i := range s.trackPeaks {
		if i < len(dst) {
			dst[i] = float32(s.trackPeaks[i].Take())
		}
	}
}

// TakeReturnPeaks copies and clears the per-return peaks.
func (s *State) TakeReturnPeaks(dst []float32) {
	for i := range s.returnPeaks {
		if i < len(dst) {
			dst[i] = float32(s.returnPeaks[i].Take())
		}
	}
}

func (s *State) recompute() {
	s.anySolo = false
	for _, t := range s.tracks {
		if t.Solo {
			s.anySolo = true
			break
		}
	}
	for i, t := range s.tracks {
		switch {
		case t.Mute:
			s.effective[i] = 0
		case !s.anySolo || t.Solo:
			s.effective[i] = t.Volume
		default:
			s.effective[i] = 0
		}
	}
}

func (s *State) checkTrack(i int) error {
	if i < 0 || i >= len(s.tracks) {
		return fmt.Errorf("%w: track %d", ErrNoSuchChannel, i)
	}
	return nil
}

func (s *State) checkReturn(i int) error {
	if i < 0 || i >= len(s.returns) {
		return fmt.Errorf("%w: return %d", ErrNoSuchChannel, i)
	}
	return nil
}
