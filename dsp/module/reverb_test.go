package module

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverbImpulseTail(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(testConfig())
	require.NoError(t, err)
	require.NoError(t, r.SetParameter("mix", 1))

	in := testutil.Stereo(testutil.Impulse(4096, 0))
	out := core.NewBuffer(4096)
	r.Process(in, out)

	// nothing arrives before the shortest comb
	for i := 0; i < 1116; i++ {
		assert.Zero(t, out.L[i], "frame %d", i)
	}
	assert.Greater(t, rms(out.L[1000:]), 0.0)
	assert.NotEqual(t, out.L, out.R, "stereo spread")
}

func TestReverbStaysBounded(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(testConfig())
	require.NoError(t, err)
	require.NoError(t, r.SetParameter("feedback", 0.98))
	require.NoError(t, r.SetParameter("mix", 1))

	noise := testutil.DeterministicNoise(7, 1, 2000*256)
	out := core.NewBuffer(256)
	maxAbs := 0.0
	for b := 0; b < 2000; b++ {
		r.Process(testutil.Stereo(noise[b*256:(b+1)*256]), out)
		testutil.RequireFinite(t, out)
		maxAbs = math.Max(maxAbs, peak(out))
	}
	// combs gain at most 1/(1-0.98), each diffuser at most 5
	assert.Less(t, maxAbs, 1250.0)
}

func TestReverbDryPath(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(testConfig())
	require.NoError(t, err)
	require.NoError(t, r.SetParameter("mix", 0))

	in := core.NewBuffer(32)
	for i := range in.L {
		in.L[i] = float64(i)
		in.R[i] = -float64(i)
	}
	out := core.NewBuffer(32)
	r.Process(in, out)
	assert.Equal(t, in.L, out.L)
	assert.Equal(t, in.R, out.R)
}

func TestReverbParameters(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(testConfig())
	require.NoError(t, err)

	v, _ := r.Parameter("feedback")
	assert.Equal(t, 0.84, v)
	require.NoError(t, r.SetParameter("feedback", 3))
	v, _ = r.Parameter("feedback")
	assert.Equal(t, 0.98, v)
	require.NoError(t, r.SetParameter("damp", 0.4))
	v, _ = r.Parameter("damp")
	assert.Equal(t, 0.4, v)
	assert.ErrorIs(t, r.SetParameter("size", 1), ErrUnknownParameter)
}

func TestReverbReset(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(testConfig())
	require.NoError(t, err)
	in := core.NewBuffer(2048)
	in.L[0] = 1
	out := core.NewBuffer(2048)
	r.Process(in, out)

	r.Reset()
	in.Zero()
	r.Process(in, out)
	assert.Zero(t, peak(out))
}
