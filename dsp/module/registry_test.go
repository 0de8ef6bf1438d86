package module

import (
	"testing"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryBuildsEveryProcessor(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	for _, k := range []Kind{KindOscillator, KindFilter, KindDelay, KindReverb, KindVCA} {
		m, err := r.New(k, testConfig())
		require.NoError(t, err, k.String())
		require.NotNil(t, m, k.String())
	}

	for _, k := range []Kind{KindMixer, KindOutput, KindInput} {
		m, err := r.New(k, testConfig())
		require.NoError(t, err)
		assert.Nil(t, m, "%s passes through", k)
	}

	_, err := r.New(Kind(42), testConfig())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	f := func(core.ProcessorConfig) (Module, error) { return NewVCA(core.ProcessorConfig{}), nil }
	require.NoError(t, r.Register(KindVCA, f))
	assert.Error(t, r.Register(KindVCA, f))
	assert.Error(t, r.Register(KindVCA+100, f))
	assert.Error(t, r.Register(KindFilter, nil))
	assert.Panics(t, func() { r.MustRegister(KindVCA, f) })
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind(" Reverb ")
	require.NoError(t, err)
	assert.Equal(t, KindReverb, k)

	_, err = ParseKind("sampler")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestModulesRejectBadConfig(t *testing.T) {
	t.Parallel()

	bad := core.ProcessorConfig{}
	_, err := NewOscillator(bad)
	assert.Error(t, err)
	_, err = NewFilter(bad)
	assert.Error(t, err)
	_, err = NewDelay(bad)
	assert.Error(t, err)
	_, err = NewReverb(bad)
	assert.Error(t, err)
}
