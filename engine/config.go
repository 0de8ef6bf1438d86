package engine

import (
	"time"

	"github.com/cwbudde/algo-daw/engine/bridge"
	"github.com/cwbudde/algo-daw/engine/device"
	"github.com/sirupsen/logrus"
)

// Config holds engine construction settings.
type Config struct {
	SampleRate       int
	BufferSize       int
	Channels         int
	ControlCapacity  int
	SnapshotCapacity int
	SnapshotRate     float64
	Tracks           int
	Returns          int
	MaxNodes         int
	EventCapacity    int
	StopTimeout      time.Duration
	Seed             uint32
	Backend          device.Backend
	Logger           logrus.FieldLogger
}

// Option mutates engine configuration.
type Option func(*Config)

// DefaultConfig returns the engine defaults: 48 kHz stereo, 512-frame
// buffers, 16 tracks, 4 returns and a headless backend.
func DefaultConfig() Config {
	return Config{
		SampleRate:       device.DefaultSampleRate,
		BufferSize:       device.DefaultBufferSize,
		Channels:         device.DefaultChannels,
		ControlCapacity:  bridge.DefaultControlCapacity,
		SnapshotCapacity: bridge.DefaultSnapshotCapacity,
		SnapshotRate:     bridge.DefaultSnapshotRate,
		Tracks:           16,
		Returns:          4,
		MaxNodes:         256,
		EventCapacity:    1024,
		StopTimeout:      500 * time.Millisecond,
		Seed:             1,
	}
}

// WithSampleRate sets the requested device sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithBufferSize sets the requested frames per callback.
func WithBufferSize(frames int) Option {
	return func(c *Config) { c.BufferSize = frames }
}

// WithChannels sets the device channel count (1 or 2).
func WithChannels(n int) Option {
	return func(c *Config) { c.Channels = n }
}

// WithControlCapacity sets the control queue capacity.
func WithControlCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ControlCapacity = n
		}
	}
}

// WithSnapshotCapacity sets the snapshot channel capacity.
func WithSnapshotCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SnapshotCapacity = n
		}
	}
}

// WithSnapshotRate sets the snapshot publish rate in Hz.
func WithSnapshotRate(hz float64) Option {
	return func(c *Config) {
		if hz > 0 {
			c.SnapshotRate = hz
		}
	}
}

// WithTracks sets the number of mixer tracks.
func WithTracks(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Tracks = n
		}
	}
}

// WithReturns sets the number of mixer returns.
func WithReturns(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Returns = n
		}
	}
}

// WithMaxNodes limits the graph size.
func WithMaxNodes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxNodes = n
		}
	}
}

// WithEventCapacity sets the scheduled event queue capacity.
func WithEventCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.EventCapacity = n
		}
	}
}

// WithStopTimeout bounds how long Stop waits for the callback.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StopTimeout = d
		}
	}
}

// WithSeed sets the seed for noise generators.
func WithSeed(seed uint32) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithBackend selects the output backend. The default is headless.
func WithBackend(b device.Backend) Option {
	return func(c *Config) { c.Backend = b }
}

// WithLogger sets the logger for cold-path events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = l }
}

// ApplyOptions applies opts over the defaults.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Backend == nil {
		cfg.Backend = device.NewNullBackend()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return cfg
}
