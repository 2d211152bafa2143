// Package config implements the Config Watcher (spec §4.6): detects
// out-of-band edits to the tunnel and credential files and reloads them
// atomically, leaving in-flight requests on their original snapshot.
package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tunnelgate/gateway/internal/events"
)

// Reloadable is satisfied by both store.CredentialStore and
// store.TunnelRegistry.
type Reloadable interface {
	Reload() error
}

// Watcher monitors a set of files and reloads the associated store when
// one changes.
type Watcher struct {
	fsw     *fsnotify.Watcher
	targets map[string]Reloadable
	events  *events.Client
}

// New creates a Watcher over the given path -> store mapping.
func New(targets map[string]Reloadable, ev *events.Client) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, targets: targets, events: ev}

	dirs := map[string]struct{}{}
	for path := range targets {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Run blocks, handling fsnotify events until the watcher is closed.
// Intended to be run in its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	target, ok := w.targets[ev.Name]
	if !ok {
		return
	}

	if err := target.Reload(); err != nil {
		slog.Warn("config reload failed, retaining prior contents", "path", ev.Name, "error", err)
		return
	}

	slog.Info("config reloaded", "path", ev.Name)
	w.events.Publish(events.ConfigReloaded, map[string]string{"path": ev.Name})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
