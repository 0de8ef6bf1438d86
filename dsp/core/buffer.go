package core

// Buffer is a block of stereo frames stored as two planar channels.
// L and R always have the same length.
type Buffer struct {
	L, R []float64
}

// NewBuffer allocates a zeroed stereo buffer of n frames.
func NewBuffer(n int) Buffer {
	if n < 0 {
		n = 0
	}
	backing := make([]float64, 2*n)
	return Buffer{L: backing[:n:n], R: backing[n:]}
}

// Len returns the number of frames.
func (b Buffer) Len() int {
	return len(b.L)
}

// Slice returns a view of frames [from, to). The view shares memory with b.
func (b Buffer) Slice(from, to int) Buffer {
	return Buffer{L: b.L[from:to], R: b.R[from:to]}
}

// Zero sets every sample to 0.
func (b Buffer) Zero() {
	Zero(b.L)
	Zero(b.R)
}

// CopyFrom copies src into b and returns the number of frames copied.
func (b Buffer) CopyFrom(src Buffer) int {
	CopyInto(b.R, src.R)
	return CopyInto(b.L, src.L)
}

// AddFrom sums src into b sample by sample.
func (b Buffer) AddFrom(src Buffer) {
	n := min(b.Len(), src.Len())
	for i := 0; i < n; i++ {
		b.L[i] += src.L[i]
		b.R[i] += src.R[i]
	}
}

// Deinterleave reads interleaved float32 frames with the given channel count
// into b. Mono input is duplicated to both channels; channels beyond the
// second are ignored. Missing frames are zeroed.
func (b Buffer) Deinterleave(src []float32, channels int) {
	if channels <= 0 {
		b.Zero()
		return
	}
	frames := len(src) / channels
	n := min(frames, b.Len())
	for i := 0; i < n; i++ {
		l := float64(src[i*channels])
		r := l
		if channels > 1 {
			r = float64(src[i*channels+1])
		}
		b.L[i] = l
		b.R[i] = r
	}
	Zero(b.L[n:])
	Zero(b.R[n:])
}

// Interleave writes b to dst as interleaved float32 frames, hard-clipped to
// [-1, 1]. For mono output the channels are averaged; extra channels beyond
// the second receive silence.
func (b Buffer) Interleave(dst []float32, channels int) {
	if channels <= 0 {
		return
	}
	frames := min(len(dst)/channels, b.Len())
	for i := 0; i < frames; i++ {
		base := i * channels
		if channels == 1 {
			dst[base] = float32(Clamp(0.5*(b.L[i]+b.R[i]), -1, 1))
			continue
		}
		dst[base] = float32(Clamp(b.L[i], -1, 1))
		dst[base+1] = float32(Clamp(b.R[i], -1, 1))
		for c := 2; c < channels; c++ {
			dst[base+c] = 0
		}
	}
	for i := frames * channels; i < len(dst); i++ {
		dst[i] = 0
	}
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	return n
}
