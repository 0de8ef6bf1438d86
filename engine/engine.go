// Package engine is the composition root of the audio engine.
//
// An Engine owns the device, the node graph, the mixer, the transport and
// the scheduled event queue. Everything except the bridge is touched only by
// the device callback; the control goroutine talks to it through a
// Controller.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-daw/dsp/core"
	"github.com/cwbudde/algo-daw/dsp/meter"
	"github.com/cwbudde/algo-daw/dsp/module"
	"github.com/cwbudde/algo-daw/dsp/spectrum"
	"github.com/cwbudde/algo-daw/engine/bridge"
	"github.com/cwbudde/algo-daw/engine/control"
	"github.com/cwbudde/algo-daw/engine/device"
	"github.com/cwbudde/algo-daw/engine/event"
	"github.com/cwbudde/algo-daw/engine/graph"
	"github.com/cwbudde/algo-daw/engine/mixer"
	"github.com/cwbudde/algo-daw/engine/transport"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStopTimeout is returned when the callback does not acknowledge
	// shutdown in time. The device is released regardless.
	ErrStopTimeout = errors.New("engine: stop timed out")
	// ErrNotOffline is returned by Render on an engine without a manual
	// backend.
	ErrNotOffline = errors.New("engine: render needs a manual backend")
	// ErrNotRunning is returned when rendering a stopped engine.
	ErrNotRunning = errors.New("engine: not running")
)

// Engine runs the per-buffer processing loop.
type Engine struct {
	cfg      Config
	log      logrus.FieldLogger
	proc     core.ProcessorConfig
	registry *module.Registry

	device *device.Device
	manual *device.ManualBackend
	bridge *bridge.Bridge
	ctrl   *Controller

	running    atomic.Bool
	started    atomic.Bool
	ack        chan struct{}
	sampleTime atomic.Int64

	// audio goroutine state
	graph     *graph.Graph
	mixer     *mixer.State
	transport *transport.Transport
	events    *event.Queue[event.Event]
	throttle  *bridge.Throttle
	analyzer  *spectrum.Analyzer
	meter     meter.Meter
	in, out   core.Buffer
	mono      []float64

	seq           uint64
	graphErr      error
	rejected      uint64
	droppedEvents uint64

	// per-buffer cursor for splitting the graph pass at event offsets
	pass    int
	applyFn func(control.Message)
	eventFn func(event.Event, int)
}

// New builds an engine and opens its device. Negotiation failures are
// returned before any goroutine starts.
func New(opts ...Option) (*Engine, error) {
	cfg := ApplyOptions(opts...)
	log := cfg.Logger

	dev, err := device.Open(cfg.Backend, device.Format{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		BufferSize: cfg.BufferSize,
	}, device.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	f := dev.Format()

	proc := core.ApplyProcessorOptions(
		core.WithSampleRate(float64(f.SampleRate)),
		core.WithBlockSize(f.BufferSize),
		core.WithSeed(cfg.Seed),
	)

	mix := mixer.NewState(cfg.Tracks, cfg.Returns)
	registry := module.DefaultRegistry()
	registry.MustRegister(module.KindMixer, mixer.Factory(mix))

	analyzer, err := spectrum.NewAnalyzer(spectrum.DefaultSize)
	if err != nil {
		_ = dev.Stop()
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		log:       log,
		proc:      proc,
		registry:  registry,
		device:    dev,
		bridge:    bridge.New(cfg.ControlCapacity, cfg.SnapshotCapacity),
		ack:       make(chan struct{}, 1),
		graph:     graph.New(proc, graph.WithRegistry(registry), graph.WithMaxNodes(cfg.MaxNodes)),
		mixer:     mix,
		transport: transport.New(float64(f.SampleRate)),
		events:    event.NewQueue[event.Event](cfg.EventCapacity),
		throttle:  bridge.NewThrottle(float64(f.SampleRate), cfg.SnapshotRate),
		analyzer:  analyzer,
		in:        core.NewBuffer(f.BufferSize),
		out:       core.NewBuffer(f.BufferSize),
		mono:      make([]float64, f.BufferSize),
	}
	if m, ok := cfg.Backend.(*device.ManualBackend); ok {
		e.manual = m
	}
	e.applyFn = e.apply
	e.eventFn = e.onEvent
	e.ctrl = newController(e)

	log.WithFields(logrus.Fields{
		"function": "engine.New",
		"format":   f.String(),
		"tracks":   cfg.Tracks,
		"returns":  cfg.Returns,
	}).Info("Engine created")
	return e, nil
}

// Controller returns the control-goroutine facade.
func (e *Engine) Controller() *Controller { return e.ctrl }

// Format returns the negotiated device format.
func (e *Engine) Format() device.Format { return e.device.Format() }

// ProcessorConfig returns the config handed to module factories.
func (e *Engine) ProcessorConfig() core.ProcessorConfig { return e.proc }

// SampleTime returns the engine clock in frames. It advances by one buffer
// per callback while running, whether or not the transport plays, and is
// the time base for scheduled events.
func (e *Engine) SampleTime() int64 { return e.sampleTime.Load() }

// Start begins streaming.
func (e *Engine) Start() error {
	if e.started.Load() {
		return device.ErrRunning
	}
	e.running.Store(true)
	if err := e.device.Start(e.callback); err != nil {
		e.running.Store(false)
		return fmt.Errorf("engine: %w", err)
	}
	e.started.Store(true)
	return nil
}

// Stop clears the running flag, waits up to StopTimeout for the callback to
// acknowledge, then releases the device.
func (e *Engine) Stop() error {
	if !e.started.Swap(false) {
		return nil
	}
	e.running.Store(false)
	if e.manual != nil {
		_ = e.manual.Pump(1, nil)
	}

	var result error
	select {
	case <-e.ack:
	case <-time.After(e.cfg.StopTimeout):
		e.log.WithFields(logrus.Fields{
			"function": "Engine.Stop",
			"timeout":  e.cfg.StopTimeout.String(),
		}).Warn("Audio callback did not acknowledge shutdown")
		result = ErrStopTimeout
	}

	if err := e.device.Stop(); err != nil && result == nil {
		result = fmt.Errorf("engine: %w", err)
	}
	return result
}

// Render pumps a manual backend for at least frames frames and hands every
// interleaved output buffer to sink. The last buffer is truncated to the
// requested length.
func (e *Engine) Render(frames int, sink func(out []float32)) error {
	if e.manual == nil {
		return ErrNotOffline
	}
	if !e.started.Load() {
		return ErrNotRunning
	}
	f := e.device.Format()
	remaining := frames
	for remaining > 0 {
		n := min(remaining, f.BufferSize)
		err := e.manual.Pump(1, func(out []float32) {
			if sink != nil {
				sink(out[:n*f.Channels])
			}
		})
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		remaining -= n
	}
	return nil
}

// callback is the device edge; it runs on the audio goroutine.
func (e *Engine) callback(out, in []float32, frames int) {
	if !e.running.Load() {
		clear(out)
		select {
		case e.ack <- struct{}{}:
		default:
		}
		return
	}

	channels := e.device.Format().Channels
	inBuf := e.in.Slice(0, frames)
	outBuf := e.out.Slice(0, frames)
	inBuf.Deinterleave(in, channels)

	e.bridge.Drain(e.applyFn)

	e.pass = 0
	if e.transport.IsPlaying() {
		e.graph.Begin(frames)
		e.events.DrainBuffer(frames, e.eventFn)
		e.renderPass(frames)
		e.transport.Advance(frames)
	} else {
		e.events.DrainBuffer(frames, e.eventFn)
		outBuf.Zero()
	}

	e.meter.Add(outBuf.L, outBuf.R)
	mono := e.mono[:frames]
	for i := range mono {
		mono[i] = 0.5 * (outBuf.L[i] + outBuf.R[i])
	}
	e.analyzer.Push(mono)

	outBuf.Interleave(out, channels)
	e.sampleTime.Add(int64(frames))

	if e.throttle.Tick(frames) {
		e.publish()
	}
}

// onEvent applies a scheduled event at its frame offset, first rendering
// the frames before it.
func (e *Engine) onEvent(ev event.Event, offset int) {
	if e.transport.IsPlaying() {
		e.renderPass(offset)
	}

	id := graph.NodeID(ev.Node)
	switch ev.Kind {
	case event.ParamChange:
		if err := e.graph.SetParameter(id, ev.Param, ev.Value); err != nil {
			e.reject(err)
		}
	case event.Note:
		key, vel, on, ok := ev.NoteData()
		if !ok {
			return
		}
		if err := e.graph.Note(id, key, vel, on); err != nil {
			e.reject(err)
		}
	}
}

// renderPass runs the graph from the current pass cursor up to end.
func (e *Engine) renderPass(end int) {
	if end <= e.pass {
		return
	}
	err := e.graph.Process(e.in.Slice(e.pass, end), e.out.Slice(e.pass, end))
	if err != nil {
		e.graphErr = err
	}
	e.pass = end
}

func (e *Engine) reject(err error) {
	e.rejected++
	e.graphErr = err
}

func (e *Engine) syncMaster() {
	m := e.mixer.Master()
	e.graph.SetMaster(m.Volume, m.Pan, m.Mute)
}

// apply executes one control message on the audio goroutine.
//
//nolint:cyclop
func (e *Engine) apply(msg control.Message) {
	var err error
	switch m := msg.(type) {
	case control.Play:
		e.transport.Play()
	case control.Stop:
		e.transport.Stop()
		e.graph.Reset()
	case control.Pause:
		e.transport.Pause()
	case control.Record:
		e.transport.Record()
	case control.SetTempo:
		e.transport.SetTempo(m.BPM)
	case control.SetLoop:
		e.transport.SetLoop(m.Enabled, m.StartBeats, m.EndBeats)

	case control.MasterVolume:
		e.mixer.SetMasterVolume(m.Value)
		e.syncMaster()
	case control.MasterPan:
		e.mixer.SetMasterPan(m.Value)
		e.syncMaster()
	case control.MasterMute:
		e.mixer.SetMasterMute(m.Muted)
		e.syncMaster()
	case control.TrackVolume:
		err = e.mixer.SetTrackVolume(m.Track, m.Value)
	case control.TrackPan:
		err = e.mixer.SetTrackPan(m.Track, m.Value)
	case control.TrackMute:
		err = e.mixer.SetTrackMute(m.Track, m.Muted)
	case control.TrackSolo:
		err = e.mixer.SetTrackSolo(m.Track, m.Soloed)
	case control.TrackArm:
		err = e.mixer.SetTrackArm(m.Track, m.Armed)
	case control.ReturnVolume:
		err = e.mixer.SetReturnVolume(m.Return, m.Value)
	case control.ReturnPan:
		err = e.mixer.SetReturnPan(m.Return, m.Value)

	case control.CreateNode:
		node := m.Prepared
		if node == nil {
			node, err = graph.Prepare(m.Kind, m.ID, e.registry, e.proc)
		}
		if err == nil {
			err = e.graph.Insert(node)
		}
	case control.DeleteNode:
		err = e.graph.RemoveNode(m.ID)
	case control.Connect:
		err = e.graph.Connect(m.From, m.To, m.FromPort, m.ToPort)
	case control.Disconnect:
		err = e.graph.Disconnect(m.From, m.To)
	case control.SetNodeParameter:
		err = e.graph.SetParameter(m.ID, m.Name, m.Value)

	case control.ScheduleEvent:
		if e.events.Push(m.Event, m.Timestamp) != nil {
			e.droppedEvents++
		}
	}
	if err != nil {
		e.reject(err)
	}
}

// publish builds and hands off a snapshot. It is the only allocation in the
// callback and runs at the throttled rate.
func (e *Engine) publish() {
	e.seq++
	peak, rms := e.meter.Take()
	s := &control.Snapshot{
		Sequence:       e.seq,
		Playing:        e.transport.IsPlaying(),
		Recording:      e.transport.IsRecording(),
		BPM:            e.transport.Tempo(),
		TimePosition:   e.transport.Seconds(),
		SamplePosition: e.transport.Position(),
		Beats:          e.transport.Beats(),
		MasterPeak:     peak,
		MasterRMS:      rms,
		TrackPeaks:     make([]float32, e.mixer.NumTracks()),
		ReturnPeaks:    make([]float32, e.mixer.NumReturns()),
		CPUUsage:       e.device.Load(),
		Underruns:      e.device.Underruns(),
		Panics:         e.device.Panics(),
		Faults:         e.graph.Faults(),
		DroppedEvents:  e.droppedEvents,
		RejectedEdits:  e.rejected,
		GraphError:     e.graphErr,
	}
	e.mixer.TakeTrackPeaks(s.TrackPeaks)
	e.mixer.TakeReturnPeaks(s.ReturnPeaks)
	if err := e.analyzer.Bins(s.Spectrum[:]); err != nil && s.GraphError == nil {
		s.GraphError = err
	}
	e.graphErr = nil
	e.bridge.Publish(s)
}
