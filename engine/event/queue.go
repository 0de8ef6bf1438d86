// Package event holds sample-stamped events for the audio goroutine.
//
// A Queue is a fixed-capacity list kept sorted by timestamp. The audio
// goroutine drains it once per buffer and receives each event with its frame
// offset inside that buffer, so parameter changes and notes land on the exact
// frame they were scheduled for.
package event

import "errors"

// ErrQueueFull is returned by Push when the queue holds Cap events.
var ErrQueueFull = errors.New("event: queue full")

type entry[E any] struct {
	ts  int64
	val E
}

// Queue is a bounded timestamp-ordered queue. Events with equal timestamps
// keep their push order. A Queue is not safe for concurrent use.
type Queue[E any] struct {
	items  []entry[E]
	cursor int64
}

// NewQueue allocates a queue for up to capacity events.
func NewQueue[E any](capacity int) *Queue[E] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[E]{items: make([]entry[E], 0, capacity)}
}

// Len returns the number of pending events.
func (q *Queue[E]) Len() int { return len(q.items) }

// Cap returns the queue capacity.
func (q *Queue[E]) Cap() int { return cap(q.items) }

// Cursor returns the timestamp of the first frame of the next buffer.
func (q *Queue[E]) Cursor() int64 { return q.cursor }

// Push inserts e at timestamp ts. It never blocks or grows the queue.
func (q *Queue[E]) Push(e E, ts int64) error {
	n := len(q.items)
	if n == cap(q.items) {
		return ErrQueueFull
	}

	i := n
	for i > 0 && q.items[i-1].ts > ts {
		i--
	}
	q.items = q.items[:n+1]
	copy(q.items[i+1:], q.items[i:n])
	q.items[i] = entry[E]{ts: ts, val: e}
	return nil
}

// Pending reports how many events fall before cursor+frames.
func (q *Queue[E]) Pending(frames int) int {
	end := q.cursor + int64(frames)
	k := 0
	for k < len(q.items) && q.items[k].ts < end {
		k++
	}
	return k
}

// DrainBuffer calls f for every event stamped before cursor+frames, in
// timestamp order, with offset = ts - cursor. Late events get offset 0.
// The cursor then advances by frames.
func (q *Queue[E]) DrainBuffer(frames int, f func(e E, offset int)) {
	k := q.Pending(frames)
	for i := 0; i < k; i++ {
		off := q.items[i].ts - q.cursor
		if off < 0 {
			off = 0
		}
		f(q.items[i].val, int(off))
	}

	if k > 0 {
		var zero entry[E]
		n := copy(q.items, q.items[k:])
		for i := n; i < len(q.items); i++ {
			q.items[i] = zero
		}
		q.items = q.items[:n]
	}
	q.cursor += int64(frames)
}

// Clear drops every pending event; the cursor is kept.
func (q *Queue[E]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
}
