// Command dawengine plays a patch through the audio device and logs engine
// snapshots while it runs.
//
// Usage:
//
//	dawengine [flags] [patch.json]
//
// Without a patch it plays a 440 Hz test tone through a low-pass filter.
//
// Examples:
//
//	dawengine patch/testdata/tone.json
//	dawengine -backend null -duration 5s
//	dawengine -buffer 256 -tempo 128 song.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/algo-daw/dsp/meter"
	"github.com/cwbudde/algo-daw/engine"
	"github.com/cwbudde/algo-daw/engine/device"
	"github.com/cwbudde/algo-daw/patch"
	"github.com/sirupsen/logrus"
)

const defaultPatch = `{
	"nodes": [
		{"id": "osc", "type": "oscillator", "params": {"frequency": 440, "amplitude": 0.5}},
		{"id": "lpf", "type": "filter", "params": {"cutoff": 1000}},
		{"id": "out", "type": "output"}
	],
	"connections": [
		{"from": "osc", "to": "lpf"},
		{"from": "lpf", "to": "out"}
	]
}`

func main() {
	backend := flag.String("backend", "oto", "audio backend: oto or null")
	rate := flag.Int("rate", device.DefaultSampleRate, "sample rate in Hz")
	buffer := flag.Int("buffer", device.DefaultBufferSize, "frames per callback")
	tempo := flag.Float64("tempo", 0, "tempo in BPM (0 keeps the patch tempo)")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	interval := flag.Duration("interval", time.Second, "snapshot logging interval")
	level := flag.String("log-level", "info", "log level")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dawengine [flags] [patch.json]\n\n")
		fmt.Fprintf(os.Stderr, "Plays a patch and logs engine snapshots.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dawengine: %v\n", err)
		os.Exit(2)
	}
	log.SetLevel(lvl)

	b, err := newBackend(*backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dawengine: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, *duration)
		defer stop()
	}

	err = run(ctx, config{
		patchPath: flag.Arg(0),
		backend:   b,
		rate:      *rate,
		buffer:    *buffer,
		tempo:     *tempo,
		interval:  *interval,
		log:       log,
	})
	if err != nil {
		log.WithError(err).Error("dawengine failed")
		os.Exit(1)
	}
}

type config struct {
	patchPath string
	backend   device.Backend
	rate      int
	buffer    int
	tempo     float64
	interval  time.Duration
	log       logrus.FieldLogger
}

func newBackend(name string) (device.Backend, error) {
	switch name {
	case "oto":
		return device.NewOtoBackend(), nil
	case "null":
		return device.NewNullBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func loadPatch(path string) (*patch.Patch, error) {
	if path == "" {
		return patch.ParseString(defaultPatch)
	}
	return patch.Load(path)
}

func run(ctx context.Context, cfg config) error {
	p, err := loadPatch(cfg.patchPath)
	if err != nil {
		return err
	}
	exp, err := patch.Expand(p, 0)
	if err != nil {
		return err
	}

	e, err := engine.New(
		engine.WithBackend(cfg.backend),
		engine.WithSampleRate(cfg.rate),
		engine.WithBufferSize(cfg.buffer),
		engine.WithControlCapacity(max(len(exp.Messages)+2, 100)),
		engine.WithLogger(cfg.log),
	)
	if err != nil {
		return err
	}

	c := e.Controller()
	if err := c.SendAll(exp.Messages); err != nil {
		return err
	}
	if cfg.tempo > 0 {
		if err := c.SetTempo(cfg.tempo); err != nil {
			return err
		}
	}
	if err := c.Play(); err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}

	cfg.log.WithFields(logrus.Fields{
		"function": "dawengine.run",
		"format":   e.Format().String(),
		"nodes":    len(exp.IDs),
	}).Info("Playing")

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return e.Stop()
		case <-ticker.C:
			logSnapshot(c, cfg.log)
		}
	}
}

func logSnapshot(c *engine.Controller, log logrus.FieldLogger) {
	s := c.Poll()
	if s == nil {
		return
	}
	log.WithFields(logrus.Fields{
		"function": "dawengine.logSnapshot",
		"sequence": s.Sequence,
		"beats":    fmt.Sprintf("%.2f", s.Beats),
		"seconds":  fmt.Sprintf("%.2f", s.TimePosition),
		"peak_db":  fmt.Sprintf("%.1f", meter.ToDB(s.MasterPeak)),
		"rms_db":   fmt.Sprintf("%.1f", meter.ToDB(s.MasterRMS)),
		"cpu":      fmt.Sprintf("%.1f%%", 100*s.CPUUsage),
	}).Info("Snapshot")
}
