package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrCycle is returned when an edge would close a cycle or when the
	// topology already contains one.
	ErrCycle = errors.New("graph: cycle detected")
	// ErrUnknownNode is returned for an id that is not in the graph.
	ErrUnknownNode = errors.New("graph: unknown node")
	// ErrDuplicateNode is returned when inserting an id twice.
	ErrDuplicateNode = errors.New("graph: duplicate node")
	// ErrInvalidPort is returned for ports outside [0, MaxPorts).
	ErrInvalidPort = errors.New("graph: invalid port")
	// ErrSelfLoop is returned when connecting a node to itself.
	ErrSelfLoop = errors.New("graph: self loop")
	// ErrDuplicateConnection is returned when the same edge exists already.
	ErrDuplicateConnection = errors.New("graph: duplicate connection")
	// ErrNotConnected is returned by Disconnect when no edge joins the nodes.
	ErrNotConnected = errors.New("graph: not connected")
)

// MaxPorts is the number of input ports (and output port indices) per node.
const MaxPorts = 4

// NodeID identifies a node for the lifetime of a graph.
type NodeID int

// Connection routes the output of From into input port ToPort of To.
type Connection struct {
	From     NodeID
	FromPort int
	To       NodeID
	ToPort   int
}

func (c Connection) String() string {
	return fmt.Sprintf("%d:%d->%d:%d", c.From, c.FromPort, c.To, c.ToPort)
}

// Topology is the pure structure of a node graph: node ids in insertion
// order plus directed edges. It has no audio state, so the control goroutine
// can keep a mirror of the engine's graph to validate edits before sending
// them.
//
// Order uses Kahn's algorithm seeded in insertion order, so equal graphs
// always sort identically.
type Topology struct {
	nodes []NodeID
	pos   map[NodeID]int
	edges []Connection

	// scratch reused by Order and WouldCycle
	indeg   []int
	queue   []int
	order   []NodeID
	visited []bool
}

// NewTopology returns an empty topology with room for capacity nodes.
func NewTopology(capacity int) *Topology {
	if capacity < 1 {
		capacity = 1
	}
	return &Topology{
		nodes:   make([]NodeID, 0, capacity),
		pos:     make(map[NodeID]int, capacity),
		edges:   make([]Connection, 0, capacity*MaxPorts),
		indeg:   make([]int, 0, capacity),
		queue:   make([]int, 0, capacity),
		order:   make([]NodeID, 0, capacity),
		visited: make([]bool, 0, capacity),
	}
}

// Len returns the node count.
func (t *Topology) Len() int { return len(t.nodes) }

// Has reports whether id is present.
func (t *Topology) Has(id NodeID) bool {
	_, ok := t.pos[id]
	return ok
}

// Nodes returns the node ids in insertion order. The slice is owned by t.
func (t *Topology) Nodes() []NodeID { return t.nodes }

// Edges returns all connections in insertion order. The slice is owned by t.
func (t *Topology) Edges() []Connection { return t.edges }

// AddNode appends id.
func (t *Topology) AddNode(id NodeID) error {
	if t.Has(id) {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, id)
	}
	t.pos[id] = len(t.nodes)
	t.nodes = append(t.nodes, id)
	return nil
}

// RemoveNode deletes id and every edge touching it.
func (t *Topology) RemoveNode(id NodeID) error {
	p, ok := t.pos[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}

	copy(t.nodes[p:], t.nodes[p+1:])
	t.nodes = t.nodes[:len(t.nodes)-1]
	delete(t.pos, id)
	for i := p; i < len(t.nodes); i++ {
		t.pos[t.nodes[i]] = i
	}

	kept := t.edges[:0]
	for _, e := range t.edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	t.edges = kept
	return nil
}

// Validate checks c against the current structure without adding it.
func (t *Topology) Validate(c Connection) error {
	if !t.Has(c.From) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, c.From)
	}
	if !t.Has(c.To) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, c.To)
	}
	if c.FromPort < 0 || c.FromPort >= MaxPorts || c.ToPort < 0 || c.ToPort >= MaxPorts {
		return fmt.Errorf("%w: %s", ErrInvalidPort, c)
	}
	if c.From == c.To {
		return fmt.Errorf("%w: %s", ErrSelfLoop, c)
	}
	for _, e := range t.edges {
		if e == c {
			return fmt.Errorf("%w: %s", ErrDuplicateConnection, c)
		}
	}
	if t.WouldCycle(c) {
		return fmt.Errorf("%w: %s", ErrCycle, c)
	}
	return nil
}

// Connect validates and adds c. Nothing changes when it fails.
func (t *Topology) Connect(c Connection) error {
	if err := t.Validate(c); err != nil {
		return err
	}
	t.edges = append(t.edges, c)
	return nil
}

// connectUnchecked adds c without any validation.
func (t *Topology) connectUnchecked(c Connection) {
	t.edges = append(t.edges, c)
}

// Disconnect removes every edge from -> to.
func (t *Topology) Disconnect(from, to NodeID) error {
	kept := t.edges[:0]
	removed := false
	for _, e := range t.edges {
		if e.From == from && e.To == to {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	t.edges = kept
	if !removed {
		return fmt.Errorf("%w: %d->%d", ErrNotConnected, from, to)
	}
	return nil
}

// WouldCycle reports whether adding c would make the graph cyclic, that is
// whether c.From is reachable from c.To.
func (t *Topology) WouldCycle(c Connection) bool {
	if c.From == c.To {
		return true
	}
	start, ok := t.pos[c.To]
	if !ok {
		return false
	}
	target, ok := t.pos[c.From]
	if !ok {
		return false
	}

	t.visited = resize(t.visited, len(t.nodes))
	clear(t.visited)
	stack := t.queue[:0]
	stack = append(stack, start)
	t.visited[start] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p == target {
			t.queue = stack[:0]
			return true
		}
		id := t.nodes[p]
		for _, e := range t.edges {
			if e.From != id {
				continue
			}
			q := t.pos[e.To]
			if !t.visited[q] {
				t.visited[q] = true
				stack = append(stack, q)
			}
		}
	}
	t.queue = stack[:0]
	return false
}

// Order returns the nodes in topological order, or ErrCycle. The returned
// slice is reused by the next call.
func (t *Topology) Order() ([]NodeID, error) {
	n := len(t.nodes)
	t.indeg = resize(t.indeg, n)
	clear(t.indeg)
	for _, e := range t.edges {
		t.indeg[t.pos[e.To]]++
	}

	queue := t.queue[:0]
	for p := 0; p < n; p++ {
		if t.indeg[p] == 0 {
			queue = append(queue, p)
		}
	}

	order := t.order[:0]
	for head := 0; head < len(queue); head++ {
		p := queue[head]
		id := t.nodes[p]
		order = append(order, id)
		for _, e := range t.edges {
			if e.From != id {
				continue
			}
			q := t.pos[e.To]
			t.indeg[q]--
			if t.indeg[q] == 0 {
				queue = append(queue, q)
			}
		}
	}
	t.queue = queue[:0]
	t.order = order

	if len(order) != n {
		return nil, ErrCycle
	}
	return order, nil
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
