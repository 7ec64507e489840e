package twwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twvfs"
)

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.css"), []byte(`@import "tailwindcss";`), 0o644))

	bus := twbus.New()
	msgs, cancelSub := bus.Subscribe(8)
	defer cancelSub()
	vols := make(chan *twvfs.Volume, 8)
	w, err := New(dir, WithBus(bus), WithDelay(20*time.Millisecond), WithHandler(func(v *twvfs.Volume) { vols <- v }))
	require.NoError(t, err)
	assert.Equal(t, []string{"/main.css"}, w.Volume().Paths())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plugins"), 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugins", "x.js"), []byte(`module.exports = {}`), 0o644))

	var got *twvfs.Volume
	require.Eventually(t, func() bool {
		select {
		case v := <-vols:
			got = v
		default:
		}
		return got != nil && got.Has("/plugins/x.js")
	}, 5*time.Second, 10*time.Millisecond)

	m := <-msgs
	assert.Equal(t, twbus.TaskVFSUpdated, m.Task)
	assert.Equal(t, Source, m.Source)
	fromBus, err := m.Volume()
	require.NoError(t, err)
	assert.True(t, fromBus.Has("/main.css"))

	// files outside the project patterns change nothing
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`x`), 0o644))
	time.Sleep(200 * time.Millisecond)
	select {
	case v := <-vols:
		if !v.Has("/plugins/x.js") {
			t.Fatalf("unexpected volume %v", v.Paths())
		}
	default:
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
