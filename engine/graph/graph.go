// Package graph runs a directed acyclic graph of audio modules.
//
// A Graph is owned by the audio goroutine. Structural edits arrive as
// prepared nodes and validated connections; the topological order is cached
// and recomputed only after an edit. Every (node, port) pair is an
// independent sum bus; port 0 feeds the node's module.
package graph

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/cwbudde/algo-vecmath"
)

// ErrGraphFull is returned by Insert when the node limit is reached.
var ErrGraphFull = errors.New("graph: node limit reached")

// Option configures a Graph.
type Option func(*Graph)

// WithRegistry sets the registry used by AddNode.
func WithRegistry(r *module.Registry) Option {
	return func(g *Graph) { g.registry = r }
}

// WithMaxNodes limits the number of nodes; scratch memory is sized for it.
func WithMaxNodes(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxNodes = n
		}
	}
}

// Graph holds nodes, their connections and the master stage.
type Graph struct {
	cfg      core.ProcessorConfig
	registry *module.Registry
	maxNodes int

	topo   *Topology
	nodes  map[NodeID]*Node
	nextID NodeID

	order    []*Node
	orderErr error
	dirty    bool

	masterL, masterR core.Ramp
	volume, pan      float64
	remaining        int
	mute             bool

	faults uint64
}

// New creates an empty graph for the given processing config.
func New(cfg core.ProcessorConfig, opts ...Option) *Graph {
	g := &Graph{
		cfg:      cfg,
		maxNodes: 256,
		volume:   1,
		masterL:  core.NewRamp(1),
		masterR:  core.NewRamp(1),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = module.DefaultRegistry()
	}
	if g.cfg.BlockSize <= 0 {
		g.cfg.BlockSize = core.DefaultProcessorConfig().BlockSize
	}
	g.topo = NewTopology(g.maxNodes)
	g.nodes = make(map[NodeID]*Node, g.maxNodes)
	g.order = make([]*Node, 0, g.maxNodes)
	return g
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Topology exposes the graph structure.
func (g *Graph) Topology() *Topology { return g.topo }

// Faults returns how many times a module produced non-finite output.
func (g *Graph) Faults() uint64 { return g.faults }

// AddNode prepares and inserts a node of the given kind.
func (g *Graph) AddNode(kind module.Kind) (NodeID, error) {
	id := g.nextID
	n, err := Prepare(kind, id, g.registry, g.cfg)
	if err != nil {
		return 0, err
	}
	if err := g.Insert(n); err != nil {
		return 0, err
	}
	return id, nil
}

// Insert adds a prepared node.
func (g *Graph) Insert(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrUnknownNode)
	}
	if len(g.nodes) >= g.maxNodes {
		return fmt.Errorf("%w: %d", ErrGraphFull, g.maxNodes)
	}
	if n.blockSize() < g.cfg.BlockSize {
		return fmt.Errorf("graph: node %d prepared for %d frames, need %d", n.ID, n.blockSize(), g.cfg.BlockSize)
	}
	if err := g.topo.AddNode(n.ID); err != nil {
		return err
	}
	g.nodes[n.ID] = n
	if n.ID >= g.nextID {
		g.nextID = n.ID + 1
	}
	g.dirty = true
	return nil
}

// RemoveNode deletes a node and its connections.
func (g *Graph) RemoveNode(id NodeID) error {
	if err := g.topo.RemoveNode(id); err != nil {
		return err
	}
	delete(g.nodes, id)
	g.dirty = true
	return nil
}

// Connect routes from's output into port toPort of to. Unknown nodes, bad
// ports, self loops, duplicates and edges that would close a cycle are
// rejected before anything changes.
func (g *Graph) Connect(from, to NodeID, fromPort, toPort int) error {
	err := g.topo.Connect(Connection{From: from, FromPort: fromPort, To: to, ToPort: toPort})
	if err != nil {
		return err
	}
	g.dirty = true
	return nil
}

// Disconnect removes every edge from -> to.
func (g *Graph) Disconnect(from, to NodeID) error {
	if err := g.topo.Disconnect(from, to); err != nil {
		return err
	}
	g.dirty = true
	return nil
}

// SetParameter sets a module parameter on node id.
func (g *Graph) SetParameter(id NodeID, name string, value float64) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n.SetParameter(name, value)
}

// Note delivers a note on or off to node id. Nodes whose module does not
// take notes ignore it.
func (g *Graph) Note(id NodeID, key, velocity uint8, on bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	r, ok := n.Module.(module.NoteReceiver)
	if !ok {
		return nil
	}
	if on {
		r.NoteOn(key, velocity)
	} else {
		r.NoteOff(key)
	}
	return nil
}

// SetMaster sets the master stage. volume is clamped to [0, 1] and pan to
// [-1, 1]; both glide over the next block.
func (g *Graph) SetMaster(volume, pan float64, mute bool) {
	g.volume = core.Clamp(core.Sanitize(volume, 1), 0, 1)
	g.pan = core.Clamp(core.Sanitize(pan, 0), -1, 1)
	g.mute = mute

	if mute {
		g.masterL.Set(0)
		g.masterR.Set(0)
		return
	}
	l, r := core.Balance(g.pan)
	g.masterL.Set(g.volume * l)
	g.masterR.Set(g.volume * r)
}

// Master returns the master settings.
func (g *Graph) Master() (volume, pan float64, mute bool) {
	return g.volume, g.pan, g.mute
}

// Order returns the cached processing order.
func (g *Graph) Order() ([]NodeID, error) {
	return g.topo.Order()
}

// Reset clears the state of every module and settles the master ramps.
func (g *Graph) Reset() {
	for _, n := range g.nodes {
		if n.Module != nil {
			n.Module.Reset()
		}
	}
	g.masterL.Jump(g.masterL.Target())
	g.masterR.Jump(g.masterR.Target())
	g.remaining = 0
}

// ConnectUnchecked adds an edge without validation. An edge that closes a
// cycle leaves the graph in passthrough until it is disconnected, and
// Process reports ErrCycle meanwhile.
func (g *Graph) ConnectUnchecked(c Connection) {
	g.topo.connectUnchecked(c)
	g.dirty = true
}

func (g *Graph) refresh() {
	g.dirty = false
	g.order = g.order[:0]

	ids, err := g.topo.Order()
	g.orderErr = err
	if err != nil {
		return
	}

	for _, id := range ids {
		n := g.nodes[id]
		n.inputs = n.inputs[:0]
		n.used = [MaxPorts]bool{}
		g.order = append(g.order, n)
	}
	for _, e := range g.topo.Edges() {
		dst := g.nodes[e.To]
		dst.inputs = append(dst.inputs, input{src: g.nodes[e.From], port: e.ToPort})
		dst.used[e.ToPort] = true
	}
}

// Begin opens a device buffer of frames frames. Parameter ramps glide across
// the whole buffer while Process renders it in one or more passes. Process
// opens a buffer itself when none is open.
func (g *Graph) Begin(frames int) {
	if g.dirty {
		g.refresh()
	}
	g.remaining = frames
	g.masterL.Span(frames)
	g.masterR.Span(frames)
	for _, node := range g.order {
		if s, ok := node.Module.(module.Spanner); ok {
			s.Span(frames)
		}
	}
}

// Process renders one block. in carries the engine input (it may be empty)
// and out receives the master output. If the graph holds a cycle the input
// is copied to the output and ErrCycle is returned.
func (g *Graph) Process(in, out core.Buffer) error {
	n := out.Len()
	if g.remaining <= 0 {
		g.Begin(n)
	}
	g.remaining -= n
	if g.dirty {
		g.refresh()
	}

	if g.orderErr != nil {
		if in.Len() >= n {
			out.CopyFrom(in.Slice(0, n))
		} else {
			out.Zero()
		}
		return g.orderErr
	}

	block := g.cfg.BlockSize
	for off := 0; off < n; off += block {
		end := min(off+block, n)
		var sub core.Buffer
		if in.Len() >= end {
			sub = in.Slice(off, end)
		}
		g.processBlock(sub, out.Slice(off, end))
	}
	return nil
}

func (g *Graph) processBlock(in, out core.Buffer) {
	n := out.Len()
	var final *Node

	for _, node := range g.order {
		nodeOut := node.out.Slice(0, n)

		for p := range node.bus {
			if node.used[p] {
				node.bus[p].Slice(0, n).Zero()
			}
		}
		for _, src := range node.inputs {
			dst := node.bus[src.port]
			vecmath.AddBlockInPlace(dst.L[:n], src.src.out.L[:n])
			vecmath.AddBlockInPlace(dst.R[:n], src.src.out.R[:n])
		}

		bus := node.bus[0].Slice(0, n)
		if !node.used[0] {
			bus.Zero()
		}

		switch {
		case node.Kind == module.KindInput:
			if in.Len() == n {
				nodeOut.CopyFrom(in)
			} else {
				nodeOut.Zero()
			}
			if node.used[0] {
				nodeOut.AddFrom(bus)
			}
		case node.Module == nil:
			nodeOut.CopyFrom(bus)
		default:
			node.Module.Process(bus, nodeOut)
			if !core.AllFinite(nodeOut) {
				node.Module.Reset()
				nodeOut.Zero()
				g.faults++
			}
		}

		// first Output node wins, otherwise the last node in order
		if final == nil || final.Kind != module.KindOutput {
			final = node
		}
	}

	if final == nil {
		out.Zero()
	} else {
		out.CopyFrom(final.out.Slice(0, n))
	}

	g.masterL.Apply(out.L)
	g.masterR.Apply(out.R)
}
