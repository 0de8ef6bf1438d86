package patch

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/cwbudde/algo-daw/engine/control"
	"github.com/cwbudde/algo-daw/engine/graph"
)

// Expansion is the result of Expand.
type Expansion struct {
	Messages []control.Message
	// IDs maps patch node ids to graph node ids.
	IDs map[string]graph.NodeID
}

// Expand turns p into control messages. Graph node ids are assigned in
// patch order starting at base. Structure is validated up front, cycles
// included, so a valid expansion never trips the engine's own checks.
func Expand(p *Patch, base graph.NodeID) (*Expansion, error) {
	if p == nil {
		return &Expansion{IDs: map[string]graph.NodeID{}}, nil
	}

	topo := graph.NewTopology(len(p.Nodes))
	ids := make(map[string]graph.NodeID, len(p.Nodes))
	msgs := make([]control.Message, 0, 2+len(p.Nodes)*2+len(p.Connections))

	if p.Tempo != 0 {
		msgs = append(msgs, control.SetTempo{BPM: p.Tempo})
	}
	if p.Master != nil {
		if p.Master.Volume != nil {
			msgs = append(msgs, control.MasterVolume{Value: *p.Master.Volume})
		}
		if p.Master.Pan != nil {
			msgs = append(msgs, control.MasterPan{Value: *p.Master.Pan})
		}
	}

	var params []control.Message
	for i, n := range p.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node %d has no id", ErrInvalidPatch, i)
		}
		if _, dup := ids[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidPatch, n.ID)
		}
		kind, err := module.ParseKind(n.Type)
		if err != nil {
			return nil, fmt.Errorf("patch: node %q: %w", n.ID, err)
		}
		num, err := parseNodeParams(n.Params)
		if err != nil {
			return nil, fmt.Errorf("patch: node %q: %w", n.ID, err)
		}

		id := base + graph.NodeID(i)
		ids[n.ID] = id
		if err := topo.AddNode(id); err != nil {
			return nil, err
		}
		msgs = append(msgs, control.CreateNode{Kind: kind, ID: id})

		// map order is random; sort for reproducible message streams
		names := make([]string, 0, len(num))
		for name := range num {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			params = append(params, control.SetNodeParameter{ID: id, Name: name, Value: num[name]})
		}
	}
	msgs = append(msgs, params...)

	for i, c := range p.Connections {
		from, ok := ids[c.From]
		if !ok {
			return nil, fmt.Errorf("%w: connection %d from %q", ErrUnknownNode, i, c.From)
		}
		to, ok := ids[c.To]
		if !ok {
			return nil, fmt.Errorf("%w: connection %d to %q", ErrUnknownNode, i, c.To)
		}
		conn := graph.Connection{From: from, FromPort: c.FromPort, To: to, ToPort: c.ToPort}
		if err := topo.Connect(conn); err != nil {
			return nil, fmt.Errorf("patch: connection %s->%s: %w", c.From, c.To, err)
		}
		msgs = append(msgs, control.Connect{From: from, To: to, FromPort: c.FromPort, ToPort: c.ToPort})
	}

	return &Expansion{Messages: msgs, IDs: ids}, nil
}
