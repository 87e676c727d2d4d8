// Package watcher watches an event log file and reports debounced change
// batches, so serve mode can regenerate the graph when the log is
// rewritten.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
)

// ChangeEvent is a batch of changes to the watched log file.
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// LogWatcher watches the directory holding a log file. Watching the
// directory rather than the file keeps working across editors and tools
// that replace the file on save.
type LogWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewLogWatcher creates a watcher for one log file.
func NewLogWatcher(path string) (*LogWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	return &LogWatcher{
		watcher: fsw,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching; cancelling ctx stops it.
func (lw *LogWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(lw.path)
	if err := lw.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logging.Info("watching log file", "path", lw.path)

	go lw.processEvents(ctx)
	return nil
}

// processEvents filters raw filesystem events down to the watched file
// and batches rapid bursts.
func (lw *LogWatcher) processEvents(ctx context.Context) {
	var pending []string
	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		lw.events <- ChangeEvent{Paths: pending, Timestamp: time.Now()}
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			lw.watcher.Close()
			close(lw.events)
			return

		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			changed, err := filepath.Abs(event.Name)
			if err != nil || changed != lw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = append(pending, event.Name)
			flushTimer.Reset(100 * time.Millisecond)

		case <-flushTimer.C:
			flush()

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change batches.
func (lw *LogWatcher) Events() <-chan ChangeEvent {
	return lw.events
}

// Stop stops the watcher.
func (lw *LogWatcher) Stop() error {
	return lw.watcher.Close()
}
