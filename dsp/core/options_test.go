package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyProcessorOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []ProcessorOption
		want ProcessorConfig
	}{
		{
			name: "defaults",
			want: ProcessorConfig{SampleRate: 48000, BlockSize: 1024, MaxDelaySeconds: 2, Seed: 1},
		},
		{
			name: "all set",
			opts: []ProcessorOption{WithSampleRate(96000), WithBlockSize(128), WithMaxDelay(4), WithSeed(7)},
			want: ProcessorConfig{SampleRate: 96000, BlockSize: 128, MaxDelaySeconds: 4, Seed: 7},
		},
		{
			name: "invalid values ignored",
			opts: []ProcessorOption{WithSampleRate(0), WithBlockSize(-1), WithMaxDelay(-2), WithSeed(0), nil},
			want: DefaultProcessorConfig(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ApplyProcessorOptions(tt.opts...))
		})
	}
}
