// Command render bounces a patch offline to a WAV file.
//
// Usage:
//
//	render [flags] patch.json
//
// Examples:
//
//	render -o tone.wav patch/testdata/tone.json
//	render -seconds 10 -bits 24 -rate 96000 song.json
//	render -dither none -o raw.wav song.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-daw/dsp/dither"
	"github.com/cwbudde/algo-daw/dsp/meter"
	"github.com/cwbudde/algo-daw/engine"
	"github.com/cwbudde/algo-daw/engine/device"
	"github.com/cwbudde/algo-daw/patch"
	"github.com/sirupsen/logrus"
)

func main() {
	out := flag.String("o", "out.wav", "output WAV file")
	seconds := flag.Float64("seconds", 5, "length to render in seconds")
	rate := flag.Int("rate", device.DefaultSampleRate, "sample rate in Hz")
	buffer := flag.Int("buffer", device.DefaultBufferSize, "frames per processing buffer")
	bits := flag.Int("bits", 16, "WAV bit depth (16 or 24)")
	seed := flag.Uint("seed", 1, "seed for noise sources and dither")
	ditherName := flag.String("dither", "tpdf", "dither: none, rpdf or tpdf")
	shaping := flag.Bool("shape", false, "enable first-order noise shaping")
	verbose := flag.Bool("v", false, "log engine events")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: render [flags] patch.json\n\n")
		fmt.Fprintf(os.Stderr, "Renders a patch offline and writes it as WAV.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ditherType, err := dither.ParseType(*ditherName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(2)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.InfoLevel)
	}

	err = run(options{
		patchPath: flag.Arg(0),
		outPath:   *out,
		seconds:   *seconds,
		rate:      *rate,
		buffer:    *buffer,
		bits:      *bits,
		seed:      uint32(*seed),
		dither:    ditherType,
		shaping:   *shaping,
		log:       log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	patchPath string
	outPath   string
	seconds   float64
	rate      int
	buffer    int
	bits      int
	seed      uint32
	dither    dither.Type
	shaping   bool
	log       logrus.FieldLogger
}

func run(opts options) error {
	if opts.seconds <= 0 {
		return fmt.Errorf("seconds must be positive, got %v", opts.seconds)
	}

	p, err := patch.Load(opts.patchPath)
	if err != nil {
		return err
	}
	exp, err := patch.Expand(p, 0)
	if err != nil {
		return err
	}

	e, err := engine.New(
		engine.WithBackend(device.NewManualBackend()),
		engine.WithSampleRate(opts.rate),
		engine.WithBufferSize(opts.buffer),
		engine.WithSeed(opts.seed),
		engine.WithControlCapacity(len(exp.Messages)+1),
		engine.WithLogger(opts.log),
	)
	if err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}
	defer func() { _ = e.Stop() }()

	c := e.Controller()
	if err := c.SendAll(exp.Messages); err != nil {
		return err
	}
	if err := c.Play(); err != nil {
		return err
	}

	f, err := os.Create(opts.outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	format := e.Format()
	w, err := newWAVWriter(f, format.SampleRate, format.Channels, opts.bits, format.BufferSize,
		dither.WithType(opts.dither),
		dither.WithSeed(uint64(opts.seed)),
		dither.WithShaping(opts.shaping),
	)
	if err != nil {
		return err
	}

	frames := int(opts.seconds * float64(format.SampleRate))
	var writeErr error
	err = e.Render(frames, func(out []float32) {
		if writeErr == nil {
			writeErr = w.Write(out)
		}
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if err := w.Close(); err != nil {
		return err
	}

	if s := c.Poll(); s != nil {
		opts.log.WithFields(logrus.Fields{
			"function": "render.run",
			"frames":   frames,
			"peak_db":  fmt.Sprintf("%.1f", meter.ToDB(s.MasterPeak)),
			"file":     opts.outPath,
		}).Info("Render complete")
	}
	return nil
}
