package graph

import (
	"fmt"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/module"
)

// Node is one processing vertex. Its buffers are sized when the node is
// prepared, so inserting and running it never allocates.
type Node struct {
	ID     NodeID
	Kind   module.Kind
	Params map[string]float64
	// Module is nil for pass-through nodes.
	Module module.Module

	bus    [MaxPorts]core.Buffer
	used   [MaxPorts]bool
	out    core.Buffer
	inputs []input
}

type input struct {
	src  *Node
	port int
}

// Prepare builds a node with its module and buffers. It runs on the control
// goroutine; the result is handed to the audio goroutine for Insert.
func Prepare(kind module.Kind, id NodeID, registry *module.Registry, cfg core.ProcessorConfig) (*Node, error) {
	if registry == nil {
		registry = module.DefaultRegistry()
	}
	cfg.Seed = nodeSeed(cfg.Seed, id)
	m, err := registry.New(kind, cfg)
	if err != nil {
		return nil, fmt.Errorf("graph: prepare node %d (%s): %w", id, kind, err)
	}

	block := max(cfg.BlockSize, 1)
	n := &Node{
		ID:     id,
		Kind:   kind,
		Params: make(map[string]float64, 8),
		Module: m,
		out:    core.NewBuffer(block),
		inputs: make([]input, 0, MaxPorts*2),
	}
	for p := range n.bus {
		n.bus[p] = core.NewBuffer(block)
	}
	return n, nil
}

// nodeSeed mixes the node id into the engine seed.
func nodeSeed(seed uint32, id NodeID) uint32 {
	x := seed ^ uint32(id)*0x9e3779b9
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	if x == 0 {
		x = 1
	}
	return x
}

// SetParameter forwards to the module and records the value in Params.
func (n *Node) SetParameter(name string, value float64) error {
	if n.Module == nil {
		return fmt.Errorf("%w: %s has no parameters", module.ErrUnknownParameter, n.Kind)
	}
	if err := n.Module.SetParameter(name, value); err != nil {
		return err
	}
	n.Params[name] = value
	return nil
}

// Output returns the node's most recent output block.
func (n *Node) Output() core.Buffer { return n.out }

func (n *Node) blockSize() int { return n.out.Len() }
