// Package watch rebuilds the similarity index when the SQLite feature
// database changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 2 * time.Second

// walSuffixes are SQLite side files whose changes mean new rows.
var walSuffixes = []string{"-wal", "-journal"}

// Watcher triggers a rebuild after the database file stops changing.
type Watcher struct {
	dir      string
	names    map[string]struct{}
	indexes  driving.IndexService
	debounce time.Duration
}

// New creates a watcher for the database at dbPath.
// A non-positive debounce falls back to DefaultDebounce.
func New(dbPath string, indexes driving.IndexService, debounce time.Duration) (*Watcher, error) {
	if dbPath == "" {
		return nil, errors.New("watch: database path is required")
	}
	if indexes == nil {
		return nil, errors.New("watch: index service is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	base := filepath.Base(dbPath)
	names := map[string]struct{}{base: {}}
	for _, suffix := range walSuffixes {
		names[base+suffix] = struct{}{}
	}

	return &Watcher{
		dir:      filepath.Dir(dbPath),
		names:    names,
		indexes:  indexes,
		debounce: debounce,
	}, nil
}

// Run watches until ctx is cancelled. Rebuild failures are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for feature changes", w.dir)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				logger.Debug("Database change: %s", event)
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case <-timer.C:
			w.rebuild(ctx)
		}
	}
}

// relevant reports whether event changes the database contents.
// Chmod-only events are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.names[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}

func (w *Watcher) rebuild(ctx context.Context) {
	result, err := w.indexes.Rebuild(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Rebuild after database change failed: %v", err)
		}
		return
	}
	logger.Info("Index rebuilt after database change: %d vectors, %d skipped", result.Indexed, result.Skipped)
}
