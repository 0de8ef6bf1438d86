package dither

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	minBitDepth = 8
	maxBitDepth = 32
)

var (
	// ErrInvalidType is returned for unknown dither types.
	ErrInvalidType = errors.New("dither: invalid type")
	// ErrInvalidBitDepth is returned for bit depths outside [8, 32].
	ErrInvalidBitDepth = errors.New("dither: invalid bit depth")
)

type config struct {
	typ     Type
	seed    uint64
	shaping bool
}

// Option configures a Quantizer.
type Option func(*config) error

// WithType sets the dither PDF (default Triangular).
func WithType(t Type) Option {
	return func(cfg *config) error {
		if !t.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidType, int(t))
		}
		cfg.typ = t
		return nil
	}
}

// WithSeed seeds the noise generator (default 1).
func WithSeed(seed uint64) Option {
	return func(cfg *config) error {
		cfg.seed = seed
		return nil
	}
}

// WithShaping enables first-order error feedback (default off).
func WithShaping(enabled bool) Option {
	return func(cfg *config) error {
		cfg.shaping = enabled
		return nil
	}
}

// Quantizer converts samples in [-1, 1] to signed integers of a bit depth.
type Quantizer struct {
	bitDepth int
	typ      Type
	shaping  bool
	rng      *rand.Rand
	errs     []float64

	bitMul  float64
	limitLo int
	limitHi int
}

// NewQuantizer creates a quantizer for the given bit depth and channel
// count.
func NewQuantizer(bits, channels int, opts ...Option) (*Quantizer, error) {
	if bits < minBitDepth || bits > maxBitDepth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBitDepth, bits)
	}
	cfg := config{typ: Triangular, seed: 1}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	bitMul := math.Exp2(float64(bits-1)) - 0.5
	return &Quantizer{
		bitDepth: bits,
		typ:      cfg.typ,
		shaping:  cfg.shaping,
		rng:      rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)),
		errs:     make([]float64, max(channels, 1)),
		bitMul:   bitMul,
		limitLo:  -int(math.Round(bitMul + 0.5)),
		limitHi:  int(math.Round(bitMul - 0.5)),
	}, nil
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Type returns the dither type.
func (q *Quantizer) Type() Type { return q.typ }

// ProcessInteger quantizes one sample of channel ch. The result is always
// within the bit-depth range.
func (q *Quantizer) ProcessInteger(ch int, input float64) int {
	if math.IsNaN(input) {
		input = 0
	}
	shaped := q.bitMul * input
	if q.shaping {
		shaped -= q.errs[ch]
	}

	var noise float64
	switch q.typ {
	case Rectangular:
		noise = q.rng.Float64() - 0.5
	case Triangular:
		noise = q.rng.Float64() - q.rng.Float64()
	}
	result := int(math.Floor(shaped + noise + 0.5))
	result = max(q.limitLo, min(q.limitHi, result))

	if q.shaping {
		q.errs[ch] = float64(result) - shaped
	}
	return result
}

// ProcessInterleaved quantizes interleaved frames into dst, which must be
// at least as long as src.
func (q *Quantizer) ProcessInterleaved(dst []int, src []float32) {
	channels := len(q.errs)
	for i, s := range src {
		dst[i] = q.ProcessInteger(i%channels, float64(s))
	}
}

// Reset clears the shaper history.
func (q *Quantizer) Reset() {
	clear(q.errs)
}
