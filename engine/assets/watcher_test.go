package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForChange(t *testing.T, sw *ShaderWatcher) bool {
	t.Helper()
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			return false
		case <-tick.C:
			if sw.ConsumeChanged() {
				return true
			}
		}
	}
}

func TestShaderWatcherFlagsSpvWrites(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewShaderWatcher(dir)
	require.NoError(t, err)
	defer sw.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cube.vert.spv"), []byte{1, 2, 3, 4}, 0o644))

	assert.True(t, waitForChange(t, sw), "expected a change notification for a .spv write")
	// Flag is cleared after consumption.
	assert.False(t, sw.ConsumeChanged())
}

func TestShaderWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewShaderWatcher(dir)
	require.NoError(t, err)
	defer sw.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.False(t, sw.ConsumeChanged())
}

func TestShaderWatcherMissingDir(t *testing.T) {
	_, err := NewShaderWatcher(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
