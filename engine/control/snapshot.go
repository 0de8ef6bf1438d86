package control

// SpectrumBins is the number of magnitude bins carried by a Snapshot.
const SpectrumBins = 256

// Snapshot is the engine state published to the control goroutine. A
// published snapshot is never modified.
type Snapshot struct {
	Sequence uint64

	Playing        bool
	Recording      bool
	BPM            float64
	TimePosition   float64 // seconds
	SamplePosition float64
	Beats          float64

	MasterPeak  float64
	MasterRMS   float64
	TrackPeaks  []float32
	ReturnPeaks []float32
	Spectrum    [SpectrumBins]float32

	// CPUUsage is the last callback duration over the buffer period.
	CPUUsage      float64
	Underruns     uint64
	Faults        uint64
	Panics        uint64
	DroppedEvents uint64
	RejectedEdits uint64

	// GraphError is the latest structural error met by the audio goroutine.
	GraphError error
}
