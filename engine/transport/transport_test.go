package transport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	tr := New(48000)
	assert.Equal(t, Stopped, tr.State())
	assert.False(t, tr.IsPlaying())

	tr.Advance(100)
	assert.Zero(t, tr.Position(), "stopped transport does not move")

	tr.Play()
	tr.Advance(100)
	assert.Equal(t, 100.0, tr.Position())

	tr.Pause()
	assert.Equal(t, Paused, tr.State())
	tr.Advance(100)
	assert.Equal(t, 100.0, tr.Position(), "pause keeps position")

	tr.Record()
	assert.True(t, tr.IsPlaying())
	assert.True(t, tr.IsRecording())

	tr.Pause()
	assert.False(t, tr.IsRecording())

	tr.Record()
	tr.Stop()
	assert.Equal(t, Stopped, tr.State())
	assert.False(t, tr.IsRecording())
	assert.Zero(t, tr.Position(), "stop rewinds")

	tr.Pause()
	assert.Equal(t, Stopped, tr.State(), "pause from stopped is a no-op")
	assert.Equal(t, "paused", Paused.String())
}

func TestTempoConversions(t *testing.T) {
	t.Parallel()

	tr := New(48000)
	assert.Equal(t, 24000.0, tr.SamplesPerBeat())
	assert.Equal(t, 96000.0, tr.BeatsToSamples(4))
	assert.Equal(t, 2.0, tr.SamplesToBeats(48000))

	tr.SetTempo(5)
	assert.Equal(t, MinTempo, tr.Tempo())
	tr.SetTempo(5000)
	assert.Equal(t, MaxTempo, tr.Tempo())
	tr.SetTempo(math.NaN())
	assert.Equal(t, MaxTempo, tr.Tempo())

	tr.SetTempo(60)
	tr.Play()
	tr.Advance(96000)
	assert.Equal(t, 2.0, tr.Seconds())
	assert.Equal(t, 2.0, tr.Beats())
}

func TestLoopWrapWithoutDrift(t *testing.T) {
	t.Parallel()

	tr := New(44100)
	tr.SetTempo(128)
	tr.SetLoop(true, 0, 4)

	enabled, start, end := tr.Loop()
	require.True(t, enabled)
	assert.Zero(t, start)
	assert.InDelta(t, 82687.5, end, 1e-9)

	tr.Play()
	const block = 512
	blocks := int(math.Ceil(1000 * end / block))
	wraps := 0
	for i := 0; i < blocks; i++ {
		before := tr.Position()
		tr.Advance(block)
		if tr.Position() < before {
			wraps++
		}
	}

	assert.GreaterOrEqual(t, wraps, 999)
	want := math.Mod(float64(blocks*block), end)
	assert.InDelta(t, want, tr.Position(), 1)
	assert.Less(t, tr.Position(), end)
}

func TestLoopOvershootCarried(t *testing.T) {
	t.Parallel()

	tr := New(48000)
	tr.SetTempo(120)
	tr.SetLoop(true, 1, 2) // [24000, 48000)
	tr.Seek(47000)
	tr.Play()
	tr.Advance(1500)
	assert.Equal(t, 24500.0, tr.Position())

	tr.Advance(24000 * 3)
	assert.Equal(t, 24500.0, tr.Position())
}

func TestLoopDisabledByBadRange(t *testing.T) {
	t.Parallel()

	tr := New(48000)
	tr.SetLoop(true, 4, 4)
	enabled, _, _ := tr.Loop()
	assert.False(t, enabled)

	tr.SetLoop(true, 0, 1)
	tr.SetLoop(false, 0, 1)
	enabled, _, _ = tr.Loop()
	assert.False(t, enabled)

	tr.Play()
	tr.Advance(100000)
	assert.Equal(t, 100000.0, tr.Position())
}

func TestLoopBeforeStartDoesNotWrap(t *testing.T) {
	t.Parallel()

	tr := New(48000)
	tr.SetLoop(true, 2, 3)
	tr.Play()
	tr.Advance(1000)
	assert.Equal(t, 1000.0, tr.Position())
}
