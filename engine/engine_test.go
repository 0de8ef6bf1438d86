package engine

import (
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/cwbudde/algo-daw/dsp/spectrum"
	"github.com/cwbudde/algo-daw/engine/device"
	"github.com/cwbudde/algo-daw/engine/graph"
	"github.com/cwbudde/algo-daw/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRate  = 44100
	testBlock = 256
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *device.ManualBackend, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	backend := device.NewManualBackend()
	base := []Option{
		WithSampleRate(testRate),
		WithBufferSize(testBlock),
		WithBackend(backend),
		WithLogger(logger),
	}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Stop() })
	return e, backend, hook
}

// pump renders n buffers and returns the left channel.
func pump(t *testing.T, b *device.ManualBackend, n int) []float64 {
	t.Helper()
	left := make([]float64, 0, n*testBlock)
	err := b.Pump(n, func(out []float32) {
		left = append(left, testutil.Left(out, 2)...)
	})
	require.NoError(t, err)
	return left
}

// chain builds oscillator -> filter -> output and returns the node ids.
func chain(t *testing.T, c *Controller) (osc, flt, out graph.NodeID) {
	t.Helper()
	var err error
	osc, err = c.AddNode(module.KindOscillator)
	require.NoError(t, err)
	flt, err = c.AddNode(module.KindFilter)
	require.NoError(t, err)
	out, err = c.AddNode(module.KindOutput)
	require.NoError(t, err)
	require.NoError(t, c.SetParameter(osc, "frequency", 440))
	require.NoError(t, c.SetParameter(flt, "cutoff", 1000))
	require.NoError(t, c.Connect(osc, flt, 0, 0))
	require.NoError(t, c.Connect(flt, out, 0, 0))
	return osc, flt, out
}

func TestEngineRendersFilteredTone(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	chain(t, c)
	require.NoError(t, c.Play())

	left := pump(t, b, 64)
	tail := left[len(left)/2:]

	assert.Greater(t, testutil.RMS(tail), 0.1)

	at440, err := spectrum.ToneLevel(tail, 440, testRate)
	require.NoError(t, err)
	at5k, err := spectrum.ToneLevel(tail, 5000, testRate)
	require.NoError(t, err)
	assert.Greater(t, at440, 0.5)
	assert.Greater(t, at440, 100*at5k)
}

func TestEngineSilentWhenNotPlaying(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	chain(t, e.Controller())

	testutil.RequireSilent(t, pump(t, b, 8))
	assert.Equal(t, int64(8*testBlock), e.SampleTime())

	// pause keeps silence and freezes the transport
	c := e.Controller()
	require.NoError(t, c.Play())
	pump(t, b, 2)
	require.NoError(t, c.Pause())
	testutil.RequireSilent(t, pump(t, b, 2))
	s := e.Controller().Latest()
	require.NotNil(t, s)
	assert.False(t, s.Playing)
}

func TestEngineIsDeterministic(t *testing.T) {
	t.Parallel()
	render := func() []float64 {
		e, b, _ := newTestEngine(t)
		c := e.Controller()
		osc, _, _ := chain(t, c)
		require.NoError(t, c.SetParameter(osc, "waveform", 4))
		require.NoError(t, c.Play())
		return pump(t, b, 16)
	}
	a, b := render(), render()
	diff, err := testutil.MaxAbsDiff(a, b)
	require.NoError(t, err)
	assert.Zero(t, diff)
	assert.Greater(t, testutil.Peak(a), 0.0)
}

func TestEngineScheduledEventLandsOnOffset(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	osc, err := c.AddNode(module.KindOscillator)
	require.NoError(t, err)
	out, err := c.AddNode(module.KindOutput)
	require.NoError(t, err)
	require.NoError(t, c.Connect(osc, out, 0, 0))
	require.NoError(t, c.SetParameter(osc, "amplitude", 0))
	require.NoError(t, c.Play())
	pump(t, b, 2)

	const offset = 100
	at := e.SampleTime() + offset
	require.NoError(t, c.ScheduleParameter(osc, "amplitude", 1, at))
	left := pump(t, b, 2)

	testutil.RequireSilent(t, left[:offset])
	assert.Greater(t, testutil.Peak(left[offset:]), 0.1)
}

func TestEngineMasterRampSpansBufferAroundEvents(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	osc, err := c.AddNode(module.KindOscillator)
	require.NoError(t, err)
	out, err := c.AddNode(module.KindOutput)
	require.NoError(t, err)
	require.NoError(t, c.Connect(osc, out, 0, 0))
	require.NoError(t, c.SetParameter(osc, "waveform", float64(module.WaveSquare)))
	require.NoError(t, c.Play())
	pump(t, b, 2)

	// an unrelated event splits the buffer at frame 128
	require.NoError(t, c.SetMasterVolume(0.5))
	require.NoError(t, c.ScheduleParameter(osc, "frequency", 440, e.SampleTime()+128))
	left := pump(t, b, 1)

	for i, v := range left {
		want := 1 - 0.5*float64(i)/testBlock
		require.InDelta(t, want, math.Abs(v), 1e-6, "frame %d", i)
	}
	assert.InDelta(t, 0.875, math.Abs(left[64]), 1e-6)
	assert.InDelta(t, 0.75, math.Abs(left[128]), 1e-6)
}

func TestEngineReportsCycleInNextSnapshot(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	a, err := c.AddNode(module.KindVCA)
	require.NoError(t, err)
	z, err := c.AddNode(module.KindVCA)
	require.NoError(t, err)
	require.NoError(t, c.Connect(a, z, 0, 0))
	require.NoError(t, c.Play())
	pump(t, b, 8)
	for len(c.Snapshots()) > 0 {
		<-c.Snapshots()
	}

	const level = 0.25
	in := make([]float32, 2*testBlock)
	for i := range in {
		in[i] = level
	}
	b.SetInput(in)

	// Pump runs the callback on this goroutine, so the graph is ours between pumps.
	e.graph.ConnectUnchecked(graph.Connection{From: z, To: a})
	left := pump(t, b, 8)
	for _, v := range left {
		require.InDelta(t, level, v, 1e-7, "cycle passes the input through")
	}
	require.NotEmpty(t, c.Snapshots())
	s := <-c.Snapshots()
	require.ErrorIs(t, s.GraphError, graph.ErrCycle)

	require.NoError(t, e.graph.Disconnect(z, a))
	testutil.RequireSilent(t, pump(t, b, 16))
	s = c.Latest()
	require.NotNil(t, s)
	assert.NoError(t, s.GraphError)
}

func TestEngineScheduledNotes(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	osc, err := c.AddNode(module.KindOscillator)
	require.NoError(t, err)
	out, err := c.AddNode(module.KindOutput)
	require.NoError(t, err)
	require.NoError(t, c.Connect(osc, out, 0, 0))
	require.NoError(t, c.SetParameter(osc, "amplitude", 0))
	require.NoError(t, c.Play())
	pump(t, b, 1)

	now := e.SampleTime()
	require.NoError(t, c.ScheduleNote(osc, 69, 127, true, now+testBlock))
	require.NoError(t, c.ScheduleNote(osc, 69, 0, false, now+4*testBlock))
	left := pump(t, b, 8)

	testutil.RequireSilent(t, left[:testBlock])
	assert.Greater(t, testutil.Peak(left[2*testBlock:4*testBlock]), 0.9)
	// the release glides out over one block
	testutil.RequireSilent(t, left[5*testBlock:])
}

func TestEngineSnapshots(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	chain(t, c)
	require.NoError(t, c.SetTempo(90))
	require.NoError(t, c.Play())

	const buffers = 100
	pump(t, b, buffers)

	s := c.Latest()
	require.NotNil(t, s)
	assert.True(t, s.Playing)
	assert.False(t, s.Recording)
	assert.InDelta(t, 90.0, s.BPM, 1e-12)
	assert.Greater(t, s.MasterPeak, 0.1)
	assert.Greater(t, s.MasterRMS, 0.0)
	assert.LessOrEqual(t, s.MasterRMS, s.MasterPeak)
	assert.Len(t, s.TrackPeaks, 16)
	assert.Len(t, s.ReturnPeaks, 4)
	assert.NoError(t, s.GraphError)

	// ~30 Hz of audio time: 25600 frames at 44.1 kHz is 0.58 s
	frames := float64(buffers * testBlock)
	want := 1 + frames/(testRate/30.0)
	assert.InDelta(t, want, float64(s.Sequence), 2)
	assert.LessOrEqual(t, s.SamplePosition, frames)
	assert.InDelta(t, s.SamplePosition/testRate, s.TimePosition, 1e-9)

	// spectrum peak sits at the bin closest to 440 Hz
	best := 0
	for k := range s.Spectrum {
		if s.Spectrum[k] > s.Spectrum[best] {
			best = k
		}
	}
	binHz := float64(testRate) / float64(spectrum.DefaultSize)
	assert.InDelta(t, 440, float64(best)*binHz, binHz)

	// the channel keeps the newest snapshots
	var last uint64
	for len(c.Snapshots()) > 0 {
		snap := <-c.Snapshots()
		assert.Greater(t, snap.Sequence, last)
		last = snap.Sequence
	}
	assert.Equal(t, s.Sequence, last)
}

func TestEngineMixerStrip(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	osc, err := c.AddNode(module.KindOscillator)
	require.NoError(t, err)
	strip, err := c.AddNode(module.KindMixer)
	require.NoError(t, err)
	out, err := c.AddNode(module.KindOutput)
	require.NoError(t, err)
	require.NoError(t, c.Connect(osc, strip, 0, 0))
	require.NoError(t, c.Connect(strip, out, 0, 0))
	require.NoError(t, c.SetParameter(strip, "track", 3))
	require.NoError(t, c.Play())

	pump(t, b, 4)
	s := c.Latest()
	require.NotNil(t, s)
	assert.Greater(t, s.TrackPeaks[3], float32(0.5))
	assert.Zero(t, s.TrackPeaks[0])

	// soloing another track silences track 3
	require.NoError(t, c.SetTrackSolo(1, true))
	pump(t, b, 1)
	testutil.RequireSilent(t, pump(t, b, 2))

	require.NoError(t, c.SetTrackSolo(1, false))
	require.NoError(t, c.SetTrackVolume(3, 0.5))
	pump(t, b, 1)
	assert.InDelta(t, 0.5, testutil.Peak(pump(t, b, 4)), 0.01)
}

func TestEngineMasterMuteAndVolume(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	chain(t, c)
	require.NoError(t, c.Play())
	pump(t, b, 8)

	require.NoError(t, c.SetMasterMute(true))
	pump(t, b, 1)
	testutil.RequireSilent(t, pump(t, b, 2))

	assert.ErrorIs(t, c.SetMasterVolume(1.5), ErrInvalidValue)
	assert.ErrorIs(t, c.SetMasterPan(-2), ErrInvalidValue)
}

func TestEngineTransportStopRewinds(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	chain(t, c)
	require.NoError(t, c.Record())
	pump(t, b, 4)
	s := c.Latest()
	require.NotNil(t, s)
	assert.True(t, s.Recording)

	require.NoError(t, c.Stop())
	pump(t, b, 60)
	s = c.Latest()
	require.NotNil(t, s)
	assert.False(t, s.Playing)
	assert.False(t, s.Recording)
	assert.Zero(t, s.SamplePosition)
}

func TestEngineLoopWraps(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	require.NoError(t, c.SetTempo(120))
	// one beat at 120 BPM is 22050 frames
	require.NoError(t, c.SetLoop(true, 0, 1))
	require.NoError(t, c.Play())
	pump(t, b, 100)

	s := c.Latest()
	require.NotNil(t, s)
	assert.Less(t, s.SamplePosition, 22050.0)
	assert.GreaterOrEqual(t, s.SamplePosition, 0.0)
}

func TestEngineRejectedEditsAreCounted(t *testing.T) {
	t.Parallel()
	e, b, _ := newTestEngine(t)
	c := e.Controller()
	osc, err := c.AddNode(module.KindOscillator)
	require.NoError(t, err)
	require.NoError(t, c.Play())

	// bad values pass the controller but fail in the module
	require.NoError(t, c.SetParameter(osc, "no-such-param", 1))
	require.NoError(t, c.SetTrackVolume(99, 1))
	pump(t, b, 2)

	s := c.Latest()
	require.NotNil(t, s)
	assert.Equal(t, uint64(2), s.RejectedEdits)
}

func TestEngineRenderTruncatesLastBuffer(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)

	var lens []int
	require.NoError(t, e.Render(300, func(out []float32) { lens = append(lens, len(out)) }))
	assert.Equal(t, []int{2 * testBlock, 2 * (300 - testBlock)}, lens)
	assert.Equal(t, int64(2*testBlock), e.SampleTime())
}

func TestEngineRenderNeedsManualBackend(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	e, err := New(WithLogger(logger), WithSampleRate(testRate), WithBufferSize(testBlock))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Render(10, nil), ErrNotOffline)

	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Start(), device.ErrRunning)
	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
}

func TestEngineRenderBeforeStart(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	e, err := New(WithLogger(logger), WithBackend(device.NewManualBackend()))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Render(10, nil), ErrNotRunning)
}

func TestEngineRejectsBadFormat(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	_, err := New(WithLogger(logger), WithSampleRate(12345), WithBackend(device.NewManualBackend()))
	assert.ErrorIs(t, err, device.ErrUnsupportedFormat)
}

// stuckBackend accepts Start but never renders.
type stuckBackend struct{}

func (stuckBackend) Open(f device.Format) (device.Format, error) { return f, nil }
func (stuckBackend) Start(device.RenderFunc) error               { return nil }
func (stuckBackend) Stop() error                                 { return nil }

func TestEngineStopTimesOut(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()
	e, err := New(
		WithLogger(logger),
		WithBackend(stuckBackend{}),
		WithStopTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, e.Start())

	start := time.Now()
	err = e.Stop()
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["function"] == "Engine.Stop" {
			warned = true
		}
	}
	assert.True(t, warned)
}
