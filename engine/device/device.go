package device

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrRunning is returned by Start on a device that is already streaming.
	ErrRunning = errors.New("device: already running")
	// ErrClosed is returned when using a stopped device.
	ErrClosed = errors.New("device: closed")
)

// Callback renders one period. out and in hold frames*channels interleaved
// samples; out must be fully written.
type Callback func(out, in []float32, frames int)

// RenderFunc is what a Backend invokes once per period.
type RenderFunc func(out, in []float32)

// Backend is an output implementation.
type Backend interface {
	// Open prepares the backend; it may adjust the requested format and
	// returns the granted one.
	Open(f Format) (Format, error)
	// Start begins calling render once per period.
	Start(render RenderFunc) error
	// Stop halts streaming and releases resources. Render is not called
	// after Stop returns.
	Stop() error
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger for lifecycle events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// Device owns a backend and the callback edge.
type Device struct {
	backend Backend
	format  Format
	period  time.Duration
	log     logrus.FieldLogger

	mu      sync.Mutex
	cb      Callback
	started bool
	closed  bool

	underruns atomic.Uint64
	panics    atomic.Uint64
	callbacks atomic.Uint64
	lastLoad  atomic.Uint64 // float64 bits
}

// Open negotiates req with the backend. On error nothing is left running.
func Open(backend Backend, req Format, opts ...Option) (*Device, error) {
	d := &Device{backend: backend, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(d)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrUnsupportedFormat)
	}

	f, err := Negotiate(req)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"function":  "device.Open",
			"requested": req.String(),
			"error":     err.Error(),
		}).Error("Format negotiation failed")
		return nil, err
	}

	granted, err := backend.Open(f)
	if err != nil {
		return nil, fmt.Errorf("device: open backend: %w", err)
	}
	if granted, err = Negotiate(granted); err != nil {
		_ = backend.Stop()
		return nil, fmt.Errorf("device: backend granted %w", err)
	}

	d.format = granted
	d.period = granted.Period()
	d.log.WithFields(logrus.Fields{
		"function": "device.Open",
		"backend":  fmt.Sprintf("%T", backend),
		"format":   granted.String(),
	}).Info("Audio device opened")
	return d, nil
}

// Format returns the granted format.
func (d *Device) Format() Format { return d.format }

// Start begins invoking cb once per period.
func (d *Device) Start(cb Callback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.started {
		return ErrRunning
	}
	d.cb = cb
	if err := d.backend.Start(d.render); err != nil {
		return fmt.Errorf("device: start backend: %w", err)
	}
	d.started = true
	d.log.WithFields(logrus.Fields{
		"function": "Device.Start",
		"period":   d.period.String(),
	}).Info("Audio stream started")
	return nil
}

// Stop halts streaming and releases the backend. It is safe to call twice.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.started = false
	err := d.backend.Stop()
	d.log.WithFields(logrus.Fields{
		"function":  "Device.Stop",
		"callbacks": d.callbacks.Load(),
		"underruns": d.underruns.Load(),
	}).Info("Audio stream stopped")
	if err != nil {
		return fmt.Errorf("device: stop backend: %w", err)
	}
	return nil
}

// Underruns returns how many callbacks overran their period.
func (d *Device) Underruns() uint64 { return d.underruns.Load() }

// Panics returns how many callbacks panicked.
func (d *Device) Panics() uint64 { return d.panics.Load() }

// Callbacks returns how many periods have been rendered.
func (d *Device) Callbacks() uint64 { return d.callbacks.Load() }

// Load returns the last callback's duration as a fraction of the period.
func (d *Device) Load() float64 { return math.Float64frombits(d.lastLoad.Load()) }

func (d *Device) render(out, in []float32) {
	start := time.Now()
	d.invoke(out, in)
	elapsed := time.Since(start)

	d.callbacks.Add(1)
	if d.period > 0 {
		d.lastLoad.Store(math.Float64bits(float64(elapsed) / float64(d.period)))
		if elapsed > d.period {
			d.underruns.Add(1)
		}
	}
}

func (d *Device) invoke(out, in []float32) {
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			d.panics.Add(1)
		}
	}()
	d.cb(out, in, d.format.BufferSize)
}
