package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchTargets holds callbacks that fire when the storage directory's
// files are written or created. Their purpose is catching out-of-band
// changes (a human opening observations.md, a sync tool, another
// process), but the watcher does not tell those apart from writes made
// through Journal.Append/Overwrite or Chain.Append: every write fires
// the callback. The running pipeline sets these callbacks at startup.
type WatchTargets struct {
	// OnObservationsChange fires when the observations file is written,
	// created, or renamed into place. Typically triggers a fresh
	// ContextManager.VerifyIntegrity check, since hand edits invalidate
	// the last recorded audit hash by design.
	OnObservationsChange func()

	// OnAuditChange fires when the audit log is written or created.
	OnAuditChange func()
}

// Watcher monitors the agentctx storage directory for changes using
// fsnotify, firing the appropriate callback when the observations file
// or the audit log changes underneath the running process.
//
// The watcher runs a background goroutine that processes fsnotify events.
// Call Close() to stop the watcher and release resources.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
}

// NewWatcher creates a file watcher on the given storage directory,
// matching events against observationsName and auditName (the base
// names of StorageConfig.ObservationsPath and StorageConfig.AuditPath).
//
// The watcher immediately starts processing events in a background
// goroutine. Events are not debounced: each write or create event on a
// watched file fires its callback once.
func NewWatcher(dir, observationsName, auditName string, targets WatchTargets) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	// Watch the entire storage directory. fsnotify will send events for
	// any file created, written, renamed, or removed in this directory.
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	w := &Watcher{
		fsWatcher: fw,
		done:      make(chan struct{}),
	}

	go w.processEvents(observationsName, auditName, targets)

	slog.Info("storage directory watcher started", "dir", dir)
	return w, nil
}

// processEvents reads fsnotify events and dispatches to the appropriate
// callback. Runs in a background goroutine until Close() is called.
func (w *Watcher) processEvents(observationsName, auditName string, targets WatchTargets) {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			// We only care about write and create events — not remove
			// or rename, which would indicate the file was deleted.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Match on filename regardless of directory path.
			name := filepath.Base(event.Name)
			switch name {
			case observationsName:
				slog.Info("observation journal changed out of band", "file", name)
				if targets.OnObservationsChange != nil {
					targets.OnObservationsChange()
				}
			case auditName:
				slog.Info("audit log changed out of band", "file", name)
				if targets.OnAuditChange != nil {
					targets.OnAuditChange()
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the file watcher goroutine and releases the underlying
// fsnotify watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	// Signal the goroutine to stop.
	select {
	case <-w.done:
		// Already closed.
		return nil
	default:
		close(w.done)
	}
	return w.fsWatcher.Close()
}
