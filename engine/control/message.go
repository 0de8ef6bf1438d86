// Package control defines the messages the control goroutine sends to the
// audio goroutine and the snapshots it receives back.
package control

import (
	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/cwbudde/algo-daw/engine/event"
	"github.com/cwbudde/algo-daw/engine/graph"
)

// Message is a control message. The set is closed: only types in this
// package implement it.
type Message interface {
	isMessage()
}

// Transport messages.
type (
	Play     struct{}
	Stop     struct{}
	Pause    struct{}
	Record   struct{}
	SetTempo struct{ BPM float64 }
	SetLoop  struct {
		Enabled    bool
		StartBeats float64
		EndBeats   float64
	}
)

// Mixer messages.
type (
	MasterVolume struct{ Value float64 }
	MasterPan    struct{ Value float64 }
	MasterMute   struct{ Muted bool }
	TrackVolume  struct {
		Track int
		Value float64
	}
	TrackPan struct {
		Track int
		Value float64
	}
	TrackMute struct {
		Track int
		Muted bool
	}
	TrackSolo struct {
		Track  int
		Soloed bool
	}
	TrackArm struct {
		Track int
		Armed bool
	}
	ReturnVolume struct {
		Return int
		Value  float64
	}
	ReturnPan struct {
		Return int
		Value  float64
	}
)

// Graph edit messages.
type (
	// CreateNode inserts a node. Prepared carries the node built on the
	// control goroutine; without it the audio goroutine builds one.
	CreateNode struct {
		Kind     module.Kind
		ID       graph.NodeID
		Prepared *graph.Node
	}
	DeleteNode struct{ ID graph.NodeID }
	Connect    struct {
		From, To         graph.NodeID
		FromPort, ToPort int
	}
	Disconnect       struct{ From, To graph.NodeID }
	SetNodeParameter struct {
		ID    graph.NodeID
		Name  string
		Value float64
	}
)

// ScheduleEvent queues an event at an absolute sample time of the engine
// clock.
type ScheduleEvent struct {
	Event     event.Event
	Timestamp int64
}

func (Play) isMessage()             {}
func (Stop) isMessage()             {}
func (Pause) isMessage()            {}
func (Record) isMessage()           {}
func (SetTempo) isMessage()         {}
func (SetLoop) isMessage()          {}
func (MasterVolume) isMessage()     {}
func (MasterPan) isMessage()        {}
func (MasterMute) isMessage()       {}
func (TrackVolume) isMessage()      {}
func (TrackPan) isMessage()         {}
func (TrackMute) isMessage()        {}
func (TrackSolo) isMessage()        {}
func (TrackArm) isMessage()         {}
func (ReturnVolume) isMessage()     {}
func (ReturnPan) isMessage()        {}
func (CreateNode) isMessage()       {}
func (DeleteNode) isMessage()       {}
func (Connect) isMessage()          {}
func (Disconnect) isMessage()       {}
func (SetNodeParameter) isMessage() {}
func (ScheduleEvent) isMessage()    {}

// IsGraphEdit reports whether m changes the graph structure.
func IsGraphEdit(m Message) bool {
	switch m.(type) {
	case CreateNode, DeleteNode, Connect, Disconnect:
		return true
	default:
		return false
	}
}
