// Package bridge connects the control goroutine and the audio goroutine
// without locks.
//
// Control messages travel through a bounded channel: Send never blocks and
// reports ErrQueueFull when the audio side is behind. Snapshots travel the
// other way through a latest-wins atomic cell plus a small channel that
// drops its oldest entry when full.
package bridge

import (
	"errors"
	"sync/atomic"

	"github.com/cwbudde/algo-daw/engine/control"
)

// ErrQueueFull is returned by Send when the control queue is at capacity.
var ErrQueueFull = errors.New("bridge: control queue full")

const (
	DefaultControlCapacity  = 100
	DefaultSnapshotCapacity = 10
)

// Bridge is shared by exactly one control goroutine and one audio goroutine.
type Bridge struct {
	messages  chan control.Message
	snapshots chan *control.Snapshot
	latest    atomic.Pointer[control.Snapshot]

	sent     atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a bridge. Capacities below one use the defaults.
func New(controlCapacity, snapshotCapacity int) *Bridge {
	if controlCapacity < 1 {
		controlCapacity = DefaultControlCapacity
	}
	if snapshotCapacity < 1 {
		snapshotCapacity = DefaultSnapshotCapacity
	}
	return &Bridge{
		messages:  make(chan control.Message, controlCapacity),
		snapshots: make(chan *control.Snapshot, snapshotCapacity),
	}
}

// Send enqueues m without blocking.
func (b *Bridge) Send(m control.Message) error {
	select {
	case b.messages <- m:
		b.sent.Add(1)
		return nil
	default:
		b.rejected.Add(1)
		return ErrQueueFull
	}
}

// Capacity returns the control queue capacity.
func (b *Bridge) Capacity() int { return cap(b.messages) }

// Pending returns the number of queued control messages.
func (b *Bridge) Pending() int { return len(b.messages) }

// Rejected returns how many Send calls hit a full queue.
func (b *Bridge) Rejected() uint64 { return b.rejected.Load() }

// Drain applies queued messages in FIFO order on the audio goroutine. At
// most Capacity messages are applied per call so a busy producer cannot
// starve the buffer. It returns the number applied.
func (b *Bridge) Drain(apply func(control.Message)) int {
	limit := cap(b.messages)
	for i := 0; i < limit; i++ {
		select {
		case m := <-b.messages:
			apply(m)
		default:
			return i
		}
	}
	return limit
}

// Publish stores s as the latest snapshot and offers it on the snapshot
// channel, evicting the oldest entry when full. s must not be modified
// afterwards.
func (b *Bridge) Publish(s *control.Snapshot) {
	b.latest.Store(s)
	for {
		select {
		case b.snapshots <- s:
			return
		default:
		}
		select {
		case <-b.snapshots:
			b.dropped.Add(1)
		default:
		}
	}
}

// Latest returns the newest snapshot, or nil before the first publish.
func (b *Bridge) Latest() *control.Snapshot { return b.latest.Load() }

// Snapshots returns the channel of published snapshots.
func (b *Bridge) Snapshots() <-chan *control.Snapshot { return b.snapshots }

// DroppedSnapshots returns how many snapshots were evicted unread.
func (b *Bridge) DroppedSnapshots() uint64 { return b.dropped.Load() }
