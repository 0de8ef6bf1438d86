// Package patch loads JSON patch definitions and expands them into the
// control messages that build the graph on a running engine.
//
// A patch looks like
//
//	{
//	  "tempo": 120,
//	  "nodes": [
//	    {"id": "osc", "type": "oscillator", "params": {"frequency": 440, "waveform": "saw"}},
//	    {"id": "lpf", "type": "filter", "params": {"cutoff": 1000}},
//	    {"id": "out", "type": "output"}
//	  ],
//	  "connections": [
//	    {"from": "osc", "to": "lpf"},
//	    {"from": "lpf", "to": "out"}
//	  ]
//	}
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrInvalidPatch is returned for malformed or inconsistent patches.
	ErrInvalidPatch = errors.New("patch: invalid patch")
	// ErrUnknownNode is returned when a connection names a missing node.
	ErrUnknownNode = errors.New("patch: unknown node")
)

// Node is one graph node of a patch.
type Node struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Params any    `json:"params,omitempty"`
}

// Connection routes the output of From into port ToPort of To.
type Connection struct {
	From     string `json:"from"`
	To       string `json:"to"`
	FromPort int    `json:"fromPort,omitempty"`
	ToPort   int    `json:"toPort,omitempty"`
}

// Master holds optional master bus settings.
type Master struct {
	Volume *float64 `json:"volume,omitempty"`
	Pan    *float64 `json:"pan,omitempty"`
}

// Patch is the root JSON structure.
type Patch struct {
	Tempo       float64      `json:"tempo,omitempty"`
	Master      *Master      `json:"master,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Parse decodes a patch. Unknown fields are rejected.
func Parse(r io.Reader) (*Patch, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var p Patch
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	return &p, nil
}

// ParseString decodes a patch from a string. An empty string is an empty
// patch.
func ParseString(raw string) (*Patch, error) {
	if strings.TrimSpace(raw) == "" {
		return &Patch{}, nil
	}
	return Parse(strings.NewReader(raw))
}

// Load reads a patch file.
func Load(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// parseNodeParams extracts numeric parameters from a raw JSON params value.
// Strings are resolved through the per-parameter name tables and booleans
// map to 0 or 1.
func parseNodeParams(raw any) (map[string]float64, error) {
	num := map[string]float64{}

	if raw == nil {
		return num, nil
	}
	params, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: params must be an object", ErrInvalidPatch)
	}

	for k, v := range params {
		switch t := v.(type) {
		case float64:
			num[k] = t
		case string:
			n, err := lookupName(k, t)
			if err != nil {
				return nil, err
			}
			num[k] = n
		case bool:
			if t {
				num[k] = 1
			} else {
				num[k] = 0
			}
		default:
			return nil, fmt.Errorf("%w: param %q has unsupported type %T", ErrInvalidPatch, k, v)
		}
	}
	return num, nil
}

var paramNames = map[string]map[string]float64{
	"waveform": {"sine": 0, "square": 1, "saw": 2, "triangle": 3, "noise": 4},
	"type":     {"lowpass": 0, "highpass": 1, "bandpass": 2, "notch": 3},
}

func lookupName(param, name string) (float64, error) {
	table, ok := paramNames[param]
	if !ok {
		return 0, fmt.Errorf("%w: param %q does not take names", ErrInvalidPatch, param)
	}
	v, ok := table[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidPatch, name, param)
	}
	return v, nil
}
