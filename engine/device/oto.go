package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend plays through the system output using oto. oto pulls bytes
// from its own goroutine; each time the staged period is consumed the
// render function produces the next one. Input is silent.
//
// oto permits a single context per process, so only one OtoBackend may be
// open at a time.
type OtoBackend struct {
	mu     sync.Mutex // setup and control only, never taken by Read
	format Format
	ctx    *oto.Context
	player *oto.Player
	render atomic.Pointer[RenderFunc]

	// owned by the oto goroutine once playing
	out    []float32
	in     []float32
	staged []byte
	read   int
}

// NewOtoBackend returns an oto backend.
func NewOtoBackend() *OtoBackend { return &OtoBackend{} }

// Open creates the oto context and waits until it is ready.
func (b *OtoBackend) Open(f Format) (Format, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   f.Period(),
	})
	if err != nil {
		return Format{}, fmt.Errorf("oto: %w", err)
	}
	<-ready

	b.ctx = ctx
	b.allocate(f)
	return f, nil
}

func (b *OtoBackend) allocate(f Format) {
	b.format = f
	b.out = make([]float32, f.Samples())
	b.in = make([]float32, f.Samples())
	b.staged = make([]byte, 4*f.Samples())
	b.read = len(b.staged)
}

// Start creates the player and begins playback.
func (b *OtoBackend) Start(render RenderFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return ErrNotStarted
	}
	b.render.Store(&render)
	b.player = b.ctx.NewPlayer(b)
	b.player.Play()
	return nil
}

// Read implements io.Reader for the oto player.
func (b *OtoBackend) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if b.read == len(b.staged) {
			render := b.render.Load()
			if render == nil {
				clear(p[n:])
				return len(p), nil
			}
			(*render)(b.out, b.in)
			for i, s := range b.out {
				binary.LittleEndian.PutUint32(b.staged[4*i:], math.Float32bits(s))
			}
			b.read = 0
		}
		c := copy(p[n:], b.staged[b.read:])
		b.read += c
		n += c
	}
	return n, nil
}

// Stop closes the player and suspends the context.
func (b *OtoBackend) Stop() error {
	b.render.Store(nil)
	b.mu.Lock()
	player := b.player
	b.player = nil
	b.mu.Unlock()

	var err error
	if player != nil {
		err = player.Close()
	}
	if b.ctx != nil {
		if serr := b.ctx.Suspend(); serr != nil && err == nil {
			err = serr
		}
	}
	// let oto drain its internal buffer
	time.Sleep(b.format.Period())
	return err
}
