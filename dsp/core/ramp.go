package core

import "github.com/cwbudde/algo-vecmath"

// Ramp is a continuous parameter that glides linearly from its value at the
// end of the previous buffer to its target across the next buffer.
//
// For a buffer of n frames the value at frame i is
// from + (target-from)*i/n. A buffer may be rendered in several blocks:
// Span fixes n up front and each Begin/Commit pair advances a frame cursor.
// When the cursor reaches n, current equals target exactly, so rounding
// never accumulates across buffers. Without Span every block is its own
// buffer.
type Ramp struct {
	current float64
	target  float64

	from, to  float64
	span, pos int
	pending   int
}

// NewRamp returns a ramp resting at v.
func NewRamp(v float64) Ramp {
	return Ramp{current: v, target: v, from: v, to: v}
}

// Set schedules a new target. Inside an open span the glide restarts from
// the current value and still ends with the span.
func (r *Ramp) Set(target float64) {
	if target == r.target {
		return
	}
	r.target = target
	if r.pos < r.span {
		r.from, r.to = r.current, target
		r.span -= r.pos
		r.pos = 0
	}
}

// Jump sets current and target to v without gliding.
func (r *Ramp) Jump(v float64) {
	r.current, r.target = v, v
	r.from, r.to = v, v
	r.span, r.pos, r.pending = 0, 0, 0
}

// Current returns the value reached at the end of the last block.
func (r *Ramp) Current() float64 { return r.current }

// Target returns the pending target.
func (r *Ramp) Target() float64 { return r.target }

// Active reports whether the next block glides.
func (r *Ramp) Active() bool {
	return r.current != r.target
}

// Span opens a buffer of n frames that the following blocks share.
func (r *Ramp) Span(n int) {
	r.from, r.to = r.current, r.target
	r.span, r.pos, r.pending = max(n, 0), 0, 0
}

// Begin returns the start value and per-frame increment for the next n
// frames. Call Commit once the block is rendered.
func (r *Ramp) Begin(n int) (start, step float64) {
	if n <= 0 {
		r.pending = 0
		return r.current, 0
	}
	if r.pos+n > r.span {
		r.Span(n)
	}
	r.pending = n
	if r.from == r.to {
		return r.current, 0
	}
	step = (r.to - r.from) / float64(r.span)
	return r.from + step*float64(r.pos), step
}

// Commit advances the cursor past the last block. At the end of the span
// current becomes exactly the target.
func (r *Ramp) Commit() {
	if r.pending == 0 {
		return
	}
	r.pos += r.pending
	r.pending = 0
	if r.pos >= r.span {
		r.current = r.to
		return
	}
	r.current = r.from + (r.to-r.from)*float64(r.pos)/float64(r.span)
}

// Apply multiplies buf by the ramp and commits.
func (r *Ramp) Apply(buf []float64) {
	start, step := r.Begin(len(buf))
	if step == 0 {
		if start != 1 {
			vecmath.ScaleBlock(buf, buf, start)
		}
		r.Commit()
		return
	}
	for i := range buf {
		buf[i] *= start + step*float64(i)
	}
	r.Commit()
}
