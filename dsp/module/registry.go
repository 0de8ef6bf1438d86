package module

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-daw/dsp/core"
)

// Factory builds one Module instance for a node.
type Factory func(cfg core.ProcessorConfig) (Module, error)

// Registry maps node kinds to their factories.
type Registry struct {
	factories map[Kind]Factory
}

var errDuplicateKind = errors.New("duplicate module kind")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// DefaultRegistry returns a registry with every built-in processor.
// Mixer, Output and Input nodes have no processor of their own here; the
// engine registers its mixer strip separately.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(KindOscillator, func(cfg core.ProcessorConfig) (Module, error) {
		return NewOscillator(cfg)
	})
	r.MustRegister(KindFilter, func(cfg core.ProcessorConfig) (Module, error) {
		return NewFilter(cfg)
	})
	r.MustRegister(KindDelay, func(cfg core.ProcessorConfig) (Module, error) {
		return NewDelay(cfg)
	})
	r.MustRegister(KindReverb, func(cfg core.ProcessorConfig) (Module, error) {
		return NewReverb(cfg)
	})
	r.MustRegister(KindVCA, func(cfg core.ProcessorConfig) (Module, error) {
		return NewVCA(cfg), nil
	})
	return r
}

// Register adds a factory for the given kind.
func (r *Registry) Register(kind Kind, factory Factory) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: %s", errDuplicateKind, kind)
	}

	r.factories[kind] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kind Kind, factory Factory) {
	err := r.Register(kind, factory)
	if err != nil {
		panic("module registry: " + err.Error())
	}
}

// Lookup returns the factory for the given kind, or nil.
func (r *Registry) Lookup(kind Kind) Factory {
	return r.factories[kind]
}

// New builds a module for kind. Kinds without a factory return (nil, nil):
// such nodes pass audio through unchanged.
func (r *Registry) New(kind Kind, cfg core.ProcessorConfig) (Module, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	factory := r.factories[kind]
	if factory == nil {
		return nil, nil
	}

	return factory(cfg)
}
