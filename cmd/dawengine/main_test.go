package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-daw/engine/device"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	b, err := newBackend("null")
	require.NoError(t, err)
	assert.IsType(t, &device.NullBackend{}, b)

	b, err = newBackend("oto")
	require.NoError(t, err)
	assert.IsType(t, &device.OtoBackend{}, b)

	_, err = newBackend("alsa")
	assert.Error(t, err)
}

func TestLoadPatchDefault(t *testing.T) {
	t.Parallel()
	p, err := loadPatch("")
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 3)
}

func TestRunOnNullBackend(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := run(ctx, config{
		patchPath: filepath.Join("..", "..", "patch", "testdata", "tone.json"),
		backend:   device.NewNullBackend(),
		rate:      48000,
		buffer:    512,
		tempo:     128,
		interval:  50 * time.Millisecond,
		log:       logger,
	})
	require.NoError(t, err)

	snapshots := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Snapshot" {
			snapshots++
		}
		assert.NotEqual(t, logrus.ErrorLevel, entry.Level, entry.Message)
	}
	assert.Positive(t, snapshots)
}
