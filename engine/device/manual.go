package device

import (
	"errors"
	"sync"
)

// ErrNotStarted is returned by Pump before Start.
var ErrNotStarted = errors.New("device: backend not started")

// ManualBackend renders only when Pump is called. It drives offline
// rendering and tests.
type ManualBackend struct {
	mu     sync.Mutex
	format Format
	render RenderFunc
	out    []float32
	in     []float32
}

// NewManualBackend returns a backend driven by Pump.
func NewManualBackend() *ManualBackend { return &ManualBackend{} }

// Open grants the requested format.
func (b *ManualBackend) Open(f Format) (Format, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.format = f
	b.out = make([]float32, f.Samples())
	b.in = make([]float32, f.Samples())
	return f, nil
}

// Start records the render function.
func (b *ManualBackend) Start(render RenderFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.render = render
	return nil
}

// Stop forgets the render function.
func (b *ManualBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.render = nil
	return nil
}

// SetInput copies interleaved samples into the input buffer used by the
// next Pump. Missing samples are zeroed.
func (b *ManualBackend) SetInput(in []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := copy(b.in, in)
	clear(b.in[n:])
}

// Pump renders n periods. sink, if not nil, receives each output buffer;
// the slice is reused by the next period.
func (b *ManualBackend) Pump(n int, sink func(out []float32)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.render == nil {
		return ErrNotStarted
	}
	for i := 0; i < n; i++ {
		b.render(b.out, b.in)
		if sink != nil {
			sink(b.out)
		}
	}
	return nil
}

// Output returns the most recent output buffer.
func (b *ManualBackend) Output() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out
}
