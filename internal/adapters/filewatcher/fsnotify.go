// Package filewatcher provides file system monitoring adapters.
package filewatcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
//
// Create and write notifications for a path are coalesced until the path has
// been quiet for the settle period, so a file being copied into the folder
// is reported once, after the copy is done.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions map[string]bool
	settle     time.Duration
}

// NewFSNotifyWatcher creates a watcher for the given extensions (all files
// when empty).
func NewFSNotifyWatcher(extensions []string, settle time.Duration) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: exts,
		settle:     settle,
	}, nil
}

// Watch starts monitoring the directory and emits events.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)
	go w.loop(ctx, events)
	return events, nil
}

func (w *FSNotifyWatcher) loop(ctx context.Context, events chan<- ports.FileEvent) {
	defer close(events)

	pending := make(map[string]ports.FileOperation)
	timers := make(map[string]*time.Timer)
	settled := make(chan string, 100)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	emit := func(ev ports.FileEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	schedule := func(path string, op ports.FileOperation) bool {
		if w.settle <= 0 {
			return emit(ports.FileEvent{Path: path, Operation: op})
		}
		// A write after a create still reports the create.
		if prev, ok := pending[path]; !ok || prev != ports.FileCreated {
			pending[path] = op
		}
		if t, ok := timers[path]; ok {
			t.Reset(w.settle)
			return true
		}
		timers[path] = time.AfterFunc(w.settle, func() {
			select {
			case settled <- path:
			case <-ctx.Done():
			}
		})
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.isWatchedExtension(event.Name) {
				continue
			}

			var cont bool
			switch {
			case event.Has(fsnotify.Create):
				cont = schedule(event.Name, ports.FileCreated)
			case event.Has(fsnotify.Write):
				cont = schedule(event.Name, ports.FileModified)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if t, ok := timers[event.Name]; ok {
					t.Stop()
					delete(timers, event.Name)
				}
				delete(pending, event.Name)
				cont = emit(ports.FileEvent{Path: event.Name, Operation: ports.FileDeleted})
			default:
				continue
			}
			if !cont {
				return
			}

		case path := <-settled:
			op, ok := pending[path]
			if !ok {
				continue
			}
			delete(pending, path)
			delete(timers, path)
			if !emit(ports.FileEvent{Path: path, Operation: op}) {
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched extension.
func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}
