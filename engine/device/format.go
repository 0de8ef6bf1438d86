// Package device drives the audio callback from an output backend.
//
// A Device negotiates a Format with its Backend, then invokes the engine
// callback once per hardware period with interleaved float32 buffers. Every
// invocation is timed; one that takes longer than the period counts as an
// underrun. Panics are recovered at this edge and produce silence.
package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedFormat is returned when negotiation fails.
var ErrUnsupportedFormat = errors.New("device: unsupported format")

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	DefaultBufferSize = 512

	MinBufferSize = 32
	MaxBufferSize = 8192
)

// SupportedSampleRates lists the rates a device accepts.
var SupportedSampleRates = []int{22050, 32000, 44100, 48000, 88200, 96000}

// Format describes the stream. Samples are always interleaved float32.
type Format struct {
	SampleRate int
	Channels   int
	BufferSize int
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d frames", f.SampleRate, f.Channels, f.BufferSize)
}

// Period returns the wall-clock duration of one buffer.
func (f Format) Period() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.BufferSize) * time.Second / time.Duration(f.SampleRate)
}

// Samples returns the interleaved sample count of one buffer.
func (f Format) Samples() int { return f.BufferSize * f.Channels }

// Negotiate fills defaults for zero fields and validates the rest.
func Negotiate(req Format) (Format, error) {
	f := req
	if f.SampleRate == 0 {
		f.SampleRate = DefaultSampleRate
	}
	if f.Channels == 0 {
		f.Channels = DefaultChannels
	}
	if f.BufferSize == 0 {
		f.BufferSize = DefaultBufferSize
	}

	rateOK := false
	for _, r := range SupportedSampleRates {
		if r == f.SampleRate {
			rateOK = true
			break
		}
	}
	if !rateOK {
		return Format{}, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return Format{}, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	if f.BufferSize < MinBufferSize || f.BufferSize > MaxBufferSize || f.BufferSize&(f.BufferSize-1) != 0 {
		return Format{}, fmt.Errorf("%w: buffer size %d", ErrUnsupportedFormat, f.BufferSize)
	}
	return f, nil
}
