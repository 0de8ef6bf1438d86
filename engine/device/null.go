package device

import (
	"sync"
	"time"
)

// NullBackend renders in real time without an audio device: a goroutine
// driven by a time.Ticker at the hardware period. Output is discarded.
type NullBackend struct {
	format Format
	out    []float32
	in     []float32

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewNullBackend returns a headless backend.
func NewNullBackend() *NullBackend { return &NullBackend{} }

// Open grants the requested format.
func (b *NullBackend) Open(f Format) (Format, error) {
	b.format = f
	b.out = make([]float32, f.Samples())
	b.in = make([]float32, f.Samples())
	return f, nil
}

// Start launches the ticker goroutine.
func (b *NullBackend) Start(render RenderFunc) error {
	b.stop = make(chan struct{})
	ticker := time.NewTicker(b.format.Period())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				render(b.out, b.in)
			}
		}
	}()
	return nil
}

// Stop ends the goroutine and waits for it.
func (b *NullBackend) Stop() error {
	if b.stop != nil {
		close(b.stop)
		b.wg.Wait()
		b.stop = nil
	}
	return nil
}
