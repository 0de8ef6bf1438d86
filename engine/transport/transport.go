// Package transport implements the sample-accurate playback clock.
//
// The position is a float64 sample count so that loop lengths with
// fractional samples (tempo-derived) wrap without accumulating drift.
package transport

import (
	"fmt"
	"math"
)

const (
	MinTempo     = 20.0
	MaxTempo     = 999.0
	DefaultTempo = 120.0
)

// State is the play state. Recording is tracked separately and implies
// Playing.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transport is owned by the audio goroutine.
type Transport struct {
	sampleRate float64
	bpm        float64
	state      State
	recording  bool
	position   float64

	looping   bool
	loopStart float64
	loopEnd   float64
}

// New returns a stopped transport at 120 BPM.
func New(sampleRate float64) *Transport {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		sampleRate = 48000
	}
	return &Transport{sampleRate: sampleRate, bpm: DefaultTempo}
}

// Play starts or resumes playback.
func (t *Transport) Play() { t.state = Playing }

// Pause halts playback keeping the position and ends recording.
func (t *Transport) Pause() {
	if t.state == Stopped {
		return
	}
	t.state = Paused
	t.recording = false
}

// Stop halts playback, rewinds to 0 and ends recording.
func (t *Transport) Stop() {
	t.state = Stopped
	t.recording = false
	t.position = 0
}

// Record enters Playing with the recording flag set, from any state.
func (t *Transport) Record() {
	t.state = Playing
	t.recording = true
}

// State returns the play state.
func (t *Transport) State() State { return t.state }

// IsPlaying reports whether the graph should run.
func (t *Transport) IsPlaying() bool { return t.state == Playing }

// IsRecording reports the recording flag.
func (t *Transport) IsRecording() bool { return t.recording }

// SampleRate returns the clock rate.
func (t *Transport) SampleRate() float64 { return t.sampleRate }

// Tempo returns beats per minute.
func (t *Transport) Tempo() float64 { return t.bpm }

// SetTempo clamps bpm to [20, 999]. Loop points keep their sample
// positions.
func (t *Transport) SetTempo(bpm float64) {
	if math.IsNaN(bpm) {
		return
	}
	t.bpm = math.Max(MinTempo, math.Min(MaxTempo, bpm))
}

// SamplesPerBeat returns the current beat length in samples.
func (t *Transport) SamplesPerBeat() float64 {
	return t.sampleRate * 60 / t.bpm
}

// BeatsToSamples converts beats to samples at the current tempo.
func (t *Transport) BeatsToSamples(beats float64) float64 {
	return beats * t.SamplesPerBeat()
}

// SamplesToBeats converts samples to beats at the current tempo.
func (t *Transport) SamplesToBeats(samples float64) float64 {
	return samples / t.SamplesPerBeat()
}

// SetLoop enables looping between two beat positions converted at the
// current tempo. An end at or before the start disables looping.
func (t *Transport) SetLoop(enabled bool, startBeats, endBeats float64) {
	if !enabled || !(endBeats > startBeats) || math.IsNaN(startBeats) {
		t.looping = false
		return
	}
	t.looping = true
	t.loopStart = t.BeatsToSamples(math.Max(0, startBeats))
	t.loopEnd = t.BeatsToSamples(endBeats)
}

// Loop returns the loop bounds in samples.
func (t *Transport) Loop() (enabled bool, start, end float64) {
	return t.looping, t.loopStart, t.loopEnd
}

// Seek moves the position, in samples.
func (t *Transport) Seek(samples float64) {
	if math.IsNaN(samples) || samples < 0 {
		samples = 0
	}
	t.position = samples
}

// Advance moves the position forward by frames while playing. A position
// that reaches the loop end wraps back carrying the overshoot.
func (t *Transport) Advance(frames int) {
	if t.state != Playing || frames <= 0 {
		return
	}
	t.position += float64(frames)
	if !t.looping || t.position < t.loopEnd {
		return
	}
	length := t.loopEnd - t.loopStart
	if length <= 0 {
		return
	}
	t.position = t.loopStart + math.Mod(t.position-t.loopStart, length)
}

// Position returns the position in samples.
func (t *Transport) Position() float64 { return t.position }

// Seconds returns the position in seconds.
func (t *Transport) Seconds() float64 { return t.position / t.sampleRate }

// Beats returns the position in beats at the current tempo.
func (t *Transport) Beats() float64 { return t.SamplesToBeats(t.position) }
