package module

import (
	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/internal/testutil"
)

const testSampleRate = 44100.0

func testConfig() core.ProcessorConfig {
	return core.ApplyProcessorOptions(core.WithSampleRate(testSampleRate), core.WithBlockSize(256))
}

var (
	peak = testutil.StereoPeak
	rms  = testutil.RMS
)
