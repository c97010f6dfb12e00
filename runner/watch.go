package runner

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const watchDebounce = 2 * time.Second

type pluginWatcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// watchPlugins keeps the registry in sync with the plugin directory.
// Repeated events for the same artifact are merged, so a compiler still
// writing the .so does not trigger a half-baked load.
func (r *Registry) watchPlugins() {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Warnf("runner: watch plugins: %v", err)
		return
	}
	if err := fs.Add(r.PluginDir); err != nil {
		logrus.Warnf("runner: watch %s: %v", r.PluginDir, err)
		fs.Close()
		return
	}

	w := &pluginWatcher{fs: fs, done: make(chan struct{})}
	r.watcher = w

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		r.watchLoop(w)
	}()

	logrus.Infof("runner: watching plugin directory %s", r.PluginDir)
}

func (r *Registry) watchLoop(w *pluginWatcher) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".so") {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				r.handlePluginEvent(event)
			})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logrus.Warnf("runner: watcher: %v", err)
		case <-w.done:
			return
		}
	}
}

// handlePluginEvent reloads changed artifacts. A removed artifact keeps its
// key registered as a load fault, so routes bound to it degrade to a
// reported failure instead of a missing function.
func (r *Registry) handlePluginEvent(event fsnotify.Event) {
	key := strings.TrimSuffix(filepath.Base(event.Name), ".so")

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		r.loadPlugin(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		r.registerLoadFault(key, fmt.Errorf("plugin %s removed", event.Name))
		logrus.Infof("runner: plugin %s unloaded", key)
	}
}

func (w *pluginWatcher) close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
