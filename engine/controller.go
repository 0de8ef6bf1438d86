package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/cwbudde/algo-daw/engine/bridge"
	"github.com/cwbudde/algo-daw/engine/control"
	"github.com/cwbudde/algo-daw/engine/event"
	"github.com/cwbudde/algo-daw/engine/graph"
	"github.com/sirupsen/logrus"
)

// ErrInvalidValue is returned for out-of-range control values.
var ErrInvalidValue = errors.New("engine: invalid value")

// Controller is the control-goroutine side of an Engine. It keeps a mirror
// of the graph topology so structural edits are validated, cycles included,
// before they are sent, and it prepares nodes so the audio goroutine never
// allocates them.
type Controller struct {
	engine *Engine
	bridge *bridge.Bridge
	log    logrus.FieldLogger

	mu     sync.Mutex
	mirror *graph.Topology
	kinds  map[graph.NodeID]module.Kind
	nextID graph.NodeID

	lastFaults    uint64
	lastUnderruns uint64
	lastPanics    uint64
	lastRejected  uint64
}

func newController(e *Engine) *Controller {
	return &Controller{
		engine: e,
		bridge: e.bridge,
		log:    e.log,
		mirror: graph.NewTopology(e.cfg.MaxNodes),
		kinds:  make(map[graph.NodeID]module.Kind),
	}
}

// Send validates and enqueues m. Graph edits are checked against the mirror
// topology first; CreateNode messages without a prepared node are prepared
// here.
func (c *Controller) Send(m control.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(m)
}

// SendAll sends messages in order and stops at the first failure.
func (c *Controller) SendAll(msgs []control.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range msgs {
		if err := c.sendLocked(m); err != nil {
			return fmt.Errorf("engine: message %d (%T): %w", i, m, err)
		}
	}
	return nil
}

func (c *Controller) sendLocked(m control.Message) error {
	var undo, commit func()
	switch msg := m.(type) {
	case control.CreateNode:
		if msg.Prepared == nil {
			node, err := graph.Prepare(msg.Kind, msg.ID, c.engine.registry, c.engine.proc)
			if err != nil {
				return c.rejected(m, err)
			}
			msg.Prepared = node
			m = msg
		}
		if len(c.kinds) >= c.engine.cfg.MaxNodes {
			return c.rejected(m, graph.ErrGraphFull)
		}
		if err := c.mirror.AddNode(msg.ID); err != nil {
			return c.rejected(m, err)
		}
		c.kinds[msg.ID] = msg.Kind
		commit = func() {
			if msg.ID >= c.nextID {
				c.nextID = msg.ID + 1
			}
		}
		undo = func() {
			_ = c.mirror.RemoveNode(msg.ID)
			delete(c.kinds, msg.ID)
		}
	case control.DeleteNode:
		if !c.mirror.Has(msg.ID) {
			return c.rejected(m, fmt.Errorf("%w: %d", graph.ErrUnknownNode, msg.ID))
		}
		// a deleted node cannot be restored exactly; send first
		if err := c.bridge.Send(m); err != nil {
			return err
		}
		_ = c.mirror.RemoveNode(msg.ID)
		delete(c.kinds, msg.ID)
		return nil
	case control.Connect:
		conn := graph.Connection{From: msg.From, FromPort: msg.FromPort, To: msg.To, ToPort: msg.ToPort}
		if err := c.mirror.Connect(conn); err != nil {
			return c.rejected(m, err)
		}
		undo = func() { c.removeEdge(conn) }
	case control.Disconnect:
		if !c.connected(msg.From, msg.To) {
			return c.rejected(m, fmt.Errorf("%w: %d->%d", graph.ErrNotConnected, msg.From, msg.To))
		}
		if err := c.bridge.Send(m); err != nil {
			return err
		}
		_ = c.mirror.Disconnect(msg.From, msg.To)
		return nil
	case control.SetNodeParameter:
		if !c.mirror.Has(msg.ID) {
			return c.rejected(m, fmt.Errorf("%w: %d", graph.ErrUnknownNode, msg.ID))
		}
	}

	if err := c.bridge.Send(m); err != nil {
		if undo != nil {
			undo()
		}
		return err
	}
	if commit != nil {
		commit()
	}
	return nil
}

func (c *Controller) connected(from, to graph.NodeID) bool {
	for _, e := range c.mirror.Edges() {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// removeEdge drops a single edge from the mirror, keeping parallel edges on
// other ports.
func (c *Controller) removeEdge(conn graph.Connection) {
	var keep []graph.Connection
	for _, e := range c.mirror.Edges() {
		if e.From == conn.From && e.To == conn.To && e != conn {
			keep = append(keep, e)
		}
	}
	_ = c.mirror.Disconnect(conn.From, conn.To)
	for _, e := range keep {
		_ = c.mirror.Connect(e)
	}
}

func (c *Controller) rejected(m control.Message, err error) error {
	c.log.WithFields(logrus.Fields{
		"function": "Controller.Send",
		"message":  fmt.Sprintf("%T", m),
		"error":    err.Error(),
	}).Warn("Rejected control message")
	return err
}

// Play starts the transport.
func (c *Controller) Play() error { return c.Send(control.Play{}) }

// Stop stops and rewinds the transport.
func (c *Controller) Stop() error { return c.Send(control.Stop{}) }

// Pause pauses the transport.
func (c *Controller) Pause() error { return c.Send(control.Pause{}) }

// Record starts playback with recording enabled.
func (c *Controller) Record() error { return c.Send(control.Record{}) }

// SetTempo sets beats per minute.
func (c *Controller) SetTempo(bpm float64) error { return c.Send(control.SetTempo{BPM: bpm}) }

// SetLoop sets the loop range in beats.
func (c *Controller) SetLoop(enabled bool, startBeats, endBeats float64) error {
	return c.Send(control.SetLoop{Enabled: enabled, StartBeats: startBeats, EndBeats: endBeats})
}

// SetMasterVolume sets the master volume in [0, 1].
func (c *Controller) SetMasterVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: master volume %v", ErrInvalidValue, v)
	}
	return c.Send(control.MasterVolume{Value: v})
}

// SetMasterPan sets the master pan in [-1, 1].
func (c *Controller) SetMasterPan(v float64) error {
	if v < -1 || v > 1 {
		return fmt.Errorf("%w: master pan %v", ErrInvalidValue, v)
	}
	return c.Send(control.MasterPan{Value: v})
}

// SetMasterMute mutes the master bus.
func (c *Controller) SetMasterMute(muted bool) error {
	return c.Send(control.MasterMute{Muted: muted})
}

// SetTrackVolume sets track volume in [0, 2].
func (c *Controller) SetTrackVolume(track int, v float64) error {
	return c.Send(control.TrackVolume{Track: track, Value: v})
}

// SetTrackPan sets track pan in [-1, 1].
func (c *Controller) SetTrackPan(track int, v float64) error {
	return c.Send(control.TrackPan{Track: track, Value: v})
}

// SetTrackMute mutes a track.
func (c *Controller) SetTrackMute(track int, muted bool) error {
	return c.Send(control.TrackMute{Track: track, Muted: muted})
}

// SetTrackSolo solos a track.
func (c *Controller) SetTrackSolo(track int, soloed bool) error {
	return c.Send(control.TrackSolo{Track: track, Soloed: soloed})
}

// SetTrackArm arms a track for recording.
func (c *Controller) SetTrackArm(track int, armed bool) error {
	return c.Send(control.TrackArm{Track: track, Armed: armed})
}

// SetReturnVolume sets a return volume in [0, 2].
func (c *Controller) SetReturnVolume(ret int, v float64) error {
	return c.Send(control.ReturnVolume{Return: ret, Value: v})
}

// SetReturnPan sets a return pan in [-1, 1].
func (c *Controller) SetReturnPan(ret int, v float64) error {
	return c.Send(control.ReturnPan{Return: ret, Value: v})
}

// AddNode prepares a node of kind and sends it to the engine.
func (c *Controller) AddNode(kind module.Kind) (graph.NodeID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	if err := c.sendLocked(control.CreateNode{Kind: kind, ID: id}); err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveNode deletes a node and its connections.
func (c *Controller) RemoveNode(id graph.NodeID) error {
	return c.Send(control.DeleteNode{ID: id})
}

// Connect routes from into port toPort of to. Edges that would close a
// cycle are rejected here with graph.ErrCycle.
func (c *Controller) Connect(from, to graph.NodeID, fromPort, toPort int) error {
	return c.Send(control.Connect{From: from, To: to, FromPort: fromPort, ToPort: toPort})
}

// Disconnect removes every edge from -> to.
func (c *Controller) Disconnect(from, to graph.NodeID) error {
	return c.Send(control.Disconnect{From: from, To: to})
}

// SetParameter sets a node parameter at the next buffer.
func (c *Controller) SetParameter(id graph.NodeID, name string, value float64) error {
	return c.Send(control.SetNodeParameter{ID: id, Name: name, Value: value})
}

// ScheduleParameter sets a node parameter at engine sample time at.
func (c *Controller) ScheduleParameter(id graph.NodeID, name string, value float64, at int64) error {
	return c.Send(control.ScheduleEvent{Event: event.Param(int(id), name, value), Timestamp: at})
}

// ScheduleNote plays (on) or releases a note on node id at engine sample
// time at. Use Engine.SampleTime as the reference clock.
func (c *Controller) ScheduleNote(id graph.NodeID, key, velocity uint8, on bool, at int64) error {
	ev := event.NoteOff(int(id), key)
	if on {
		ev = event.NoteOn(int(id), key, velocity)
	}
	return c.Send(control.ScheduleEvent{Event: ev, Timestamp: at})
}

// Nodes returns the ids of the mirrored graph in insertion order.
func (c *Controller) Nodes() []graph.NodeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]graph.NodeID(nil), c.mirror.Nodes()...)
}

// Kind returns the kind of a mirrored node.
func (c *Controller) Kind(id graph.NodeID) (module.Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.kinds[id]
	return k, ok
}

// Latest returns the newest snapshot without logging.
func (c *Controller) Latest() *control.Snapshot { return c.bridge.Latest() }

// Snapshots returns the published snapshot channel.
func (c *Controller) Snapshots() <-chan *control.Snapshot { return c.bridge.Snapshots() }

// Poll returns the newest snapshot and logs counters that moved since the
// previous Poll along with any graph error it carries.
func (c *Controller) Poll() *control.Snapshot {
	s := c.bridge.Latest()
	if s == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fields := logrus.Fields{"function": "Controller.Poll", "sequence": s.Sequence}
	if s.Faults > c.lastFaults {
		c.log.WithFields(fields).WithField("faults", s.Faults).Warn("Module produced non-finite output and was reset")
		c.lastFaults = s.Faults
	}
	if s.Underruns > c.lastUnderruns {
		c.log.WithFields(fields).WithField("underruns", s.Underruns).Warn("Audio callback missed its deadline")
		c.lastUnderruns = s.Underruns
	}
	if s.Panics > c.lastPanics {
		c.log.WithFields(fields).WithField("panics", s.Panics).Error("Audio callback panicked")
		c.lastPanics = s.Panics
	}
	if s.RejectedEdits > c.lastRejected {
		c.log.WithFields(fields).WithField("rejected", s.RejectedEdits).Warn("Engine rejected control messages")
		c.lastRejected = s.RejectedEdits
	}
	if s.GraphError != nil {
		c.log.WithFields(fields).WithField("error", s.GraphError.Error()).Warn("Graph error")
	}
	return s
}
