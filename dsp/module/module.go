package module

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-daw/dsp/core"
)

var (
	// ErrUnknownParameter is returned for a parameter name a module does not expose.
	ErrUnknownParameter = errors.New("module: unknown parameter")
	// ErrUnknownKind is returned when no factory is registered for a kind.
	ErrUnknownKind = errors.New("module: unknown kind")
)

// Module is the per-node processing contract.
type Module interface {
	// Process renders one block from in to out. Both buffers have the same
	// length; in may be silent for generators.
	Process(in, out core.Buffer)
	SetParameter(name string, value float64) error
	Parameter(name string) (float64, error)
	// Reset clears internal state (delay memory, filter history, phase).
	Reset()
}

// Spanner is implemented by modules with parameter ramps. The graph calls
// Span at the start of every device buffer so a glide covers the whole
// buffer even when it is rendered in several blocks.
type Spanner interface {
	Span(frames int)
}

// NoteReceiver is implemented by modules that react to MIDI notes.
type NoteReceiver interface {
	NoteOn(key, velocity uint8)
	NoteOff(key uint8)
}

// Kind tags the variant of a graph node.
type Kind int

const (
	KindOscillator Kind = iota
	KindFilter
	KindDelay
	KindReverb
	KindMixer
	KindVCA
	KindOutput
	KindInput
)

var kindNames = [...]string{
	KindOscillator: "oscillator",
	KindFilter:     "filter",
	KindDelay:      "delay",
	KindReverb:     "reverb",
	KindMixer:      "mixer",
	KindVCA:        "vca",
	KindOutput:     "output",
	KindInput:      "input",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= KindOscillator && k <= KindInput
}

// ParseKind resolves a kind by its (case-insensitive) name.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func unknownParameter(module, name string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownParameter, module, name)
}
