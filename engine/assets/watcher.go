package assets

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prisma/engine/core"
)

// ShaderWatcher observes a directory of compiled shader binaries and
// raises a flag when any .spv file changes. The render loop polls the
// flag once per frame, so bursts of writes from the shader compiler
// collapse into a single reload.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	changed bool

	done chan struct{}
}

func NewShaderWatcher(dir string) (*ShaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	sw := &ShaderWatcher{
		watcher: w,
		done:    make(chan struct{}),
	}
	go sw.run()

	core.LogInfo("Watching %s for shader changes.", dir)
	return sw, nil
}

func (sw *ShaderWatcher) run() {
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".spv" {
				continue
			}
			core.LogDebug("Shader binary changed: %s", event.Name)
			sw.mu.Lock()
			sw.changed = true
			sw.mu.Unlock()
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher error: %s", err)
		case <-sw.done:
			return
		}
	}
}

// ConsumeChanged reports whether any shader changed since the last call
// and clears the flag.
func (sw *ShaderWatcher) ConsumeChanged() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	changed := sw.changed
	sw.changed = false
	return changed
}

func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
