package event

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Kind tags what an Event does.
type Kind int

const (
	// ParamChange sets Param on Node to Value.
	ParamChange Kind = iota
	// Note delivers a MIDI note on/off message to Node.
	Note
)

func (k Kind) String() string {
	switch k {
	case ParamChange:
		return "param"
	case Note:
		return "note"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one scheduled change addressed to a graph node.
type Event struct {
	Kind    Kind
	Node    int
	Param   string
	Value   float64
	Message midi.Message
}

// Param returns a parameter change event.
func Param(node int, name string, value float64) Event {
	return Event{Kind: ParamChange, Node: node, Param: name, Value: value}
}

// NoteOn returns a note-on event for node on MIDI channel 0.
func NoteOn(node int, key, velocity uint8) Event {
	return Event{Kind: Note, Node: node, Message: midi.NoteOn(0, key, velocity)}
}

// NoteOff returns a note-off event for node on MIDI channel 0.
func NoteOff(node int, key uint8) Event {
	return Event{Kind: Note, Node: node, Message: midi.NoteOff(0, key)}
}

// FromMIDI wraps an arbitrary MIDI message for node.
func FromMIDI(node int, msg midi.Message) Event {
	return Event{Kind: Note, Node: node, Message: msg}
}

// NoteData decodes the note carried by e. on is false for note off
// (including note on with zero velocity). ok is false when e carries no
// note message.
func (e Event) NoteData() (key, velocity uint8, on, ok bool) {
	if e.Kind != Note {
		return 0, 0, false, false
	}
	var ch uint8
	if e.Message.GetNoteStart(&ch, &key, &velocity) {
		return key, velocity, true, true
	}
	if e.Message.GetNoteEnd(&ch, &key) {
		return key, 0, false, true
	}
	return 0, 0, false, false
}
