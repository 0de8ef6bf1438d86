package main

import (
	"fmt"
	"io"

	"github.com/cwbudde/algo-daw/dsp/dither"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavWriter dithers interleaved float32 buffers into a PCM WAV stream.
type wavWriter struct {
	enc   *wav.Encoder
	buf   *audio.IntBuffer
	quant *dither.Quantizer
}

func newWAVWriter(w io.WriteSeeker, sampleRate, channels, bits, frames int, opts ...dither.Option) (*wavWriter, error) {
	if bits != 16 && bits != 24 {
		return nil, fmt.Errorf("%w: %d (want 16 or 24)", dither.ErrInvalidBitDepth, bits)
	}
	quant, err := dither.NewQuantizer(bits, channels, opts...)
	if err != nil {
		return nil, err
	}
	return &wavWriter{
		enc: wav.NewEncoder(w, sampleRate, bits, channels, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, frames*channels),
			SourceBitDepth: bits,
		},
		quant: quant,
	}, nil
}

// Write appends one interleaved buffer.
func (w *wavWriter) Write(samples []float32) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	w.quant.ProcessInterleaved(w.buf.Data, samples)
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// Close finalizes the WAV header.
func (w *wavWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
