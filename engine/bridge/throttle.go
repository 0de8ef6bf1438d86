package bridge

import "math"

// DefaultSnapshotRate is the default publish rate in Hz.
const DefaultSnapshotRate = 30

// Throttle paces snapshot publishing by counting audio frames, so the rate
// is independent of the buffer size and of wall-clock jitter.
type Throttle struct {
	interval float64
	elapsed  float64
}

// NewThrottle fires rate times per second of audio at sampleRate. The first
// Tick always fires.
func NewThrottle(sampleRate, rate float64) *Throttle {
	if rate <= 0 || math.IsNaN(rate) {
		rate = DefaultSnapshotRate
	}
	interval := sampleRate / rate
	return &Throttle{interval: interval, elapsed: interval}
}

// Interval returns the frame count between publishes.
func (t *Throttle) Interval() float64 { return t.interval }

// Tick accounts frames that are about to be rendered and reports whether a
// snapshot is due.
func (t *Throttle) Tick(frames int) bool {
	t.elapsed += float64(frames)
	if t.elapsed < t.interval {
		return false
	}
	t.elapsed = math.Mod(t.elapsed, t.interval)
	return true
}
