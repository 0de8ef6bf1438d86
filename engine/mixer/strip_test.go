package mixer

import (
	"testing"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ones(n int) core.Buffer {
	b := core.NewBuffer(n)
	for i := range b.L {
		b.L[i], b.R[i] = 1, 1
	}
	return b
}

func TestUnboundStripPassesThrough(t *testing.T) {
	t.Parallel()

	s := NewStrip(NewState(1, 1))
	in := ones(8)
	out := core.NewBuffer(8)
	s.Process(in, out)
	assert.Equal(t, in.L, out.L)

	v, err := s.Parameter("track")
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

func TestTrackStripRampsToEffectiveGain(t *testing.T) {
	t.Parallel()

	st := NewState(2, 0)
	s := NewStrip(st)
	require.NoError(t, s.SetParameter("track", 1))

	out := core.NewBuffer(4)
	s.Process(ones(4), out)
	assert.Equal(t, []float64{1, 1, 1, 1}, out.L)

	require.NoError(t, st.SetTrackMute(1, true))
	s.Process(ones(4), out)
	assert.Equal(t, []float64{1, 0.75, 0.5, 0.25}, out.L)
	s.Process(ones(4), out)
	assert.Equal(t, []float64{0, 0, 0, 0}, out.R)

	require.NoError(t, st.SetTrackMute(1, false))
	require.NoError(t, st.SetTrackPan(1, -1))
	s.Process(ones(4), out)
	s.Process(ones(4), out)
	assert.Equal(t, []float64{1, 1, 1, 1}, out.L)
	assert.Equal(t, []float64{0, 0, 0, 0}, out.R)
}

func TestStripRecordsPeaks(t *testing.T) {
	t.Parallel()

	st := NewState(1, 1)
	track := NewStrip(st)
	ret := NewStrip(st)
	require.NoError(t, track.SetParameter("track", 0))
	require.NoError(t, ret.SetParameter("return", 0))
	require.NoError(t, st.SetReturnVolume(0, 0.5))
	ret.Reset()

	out := core.NewBuffer(4)
	track.Process(ones(4), out)
	ret.Process(ones(4), out)

	tp := make([]float32, 1)
	rp := make([]float32, 1)
	st.TakeTrackPeaks(tp)
	st.TakeReturnPeaks(rp)
	assert.Equal(t, float32(1), tp[0])
	assert.Equal(t, float32(0.5), rp[0])

	st.TakeTrackPeaks(tp)
	assert.Zero(t, tp[0])
}

func TestStripParameterErrors(t *testing.T) {
	t.Parallel()

	s := NewStrip(NewState(1, 0))
	assert.ErrorIs(t, s.SetParameter("track", 3), ErrNoSuchChannel)
	assert.ErrorIs(t, s.SetParameter("return", 0), ErrNoSuchChannel)
	assert.ErrorIs(t, s.SetParameter("send", 0), module.ErrUnknownParameter)
	_, err := s.Parameter("send")
	assert.ErrorIs(t, err, module.ErrUnknownParameter)

	require.NoError(t, s.SetParameter("track", 0))
	require.NoError(t, s.SetParameter("track", -1))
	v, _ := s.Parameter("track")
	assert.Equal(t, -1.0, v)
}

func TestFactoryBuildsStrips(t *testing.T) {
	t.Parallel()

	reg := module.NewRegistry()
	require.NoError(t, reg.Register(module.KindMixer, Factory(NewState(1, 0))))
	m, err := reg.New(module.KindMixer, core.DefaultProcessorConfig())
	require.NoError(t, err)
	assert.IsType(t, &Strip{}, m)
}

func TestStripRampSpansSplitBuffer(t *testing.T) {
	t.Parallel()

	st := NewState(1, 0)
	s := NewStrip(st)
	require.NoError(t, s.SetParameter("track", 0))
	require.NoError(t, st.SetTrackMute(0, true))

	out := core.NewBuffer(8)
	s.Span(8)
	s.Process(ones(3), out.Slice(0, 3))
	s.Process(ones(5), out.Slice(3, 8))
	assert.Equal(t, []float64{1, 0.875, 0.75, 0.625, 0.5, 0.375, 0.25, 0.125}, out.L)
	assert.Equal(t, out.L, out.R)
}
