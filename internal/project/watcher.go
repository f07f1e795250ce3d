package project

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports when a project file changes on disk. The directory is
// watched rather than the file, so atomic replaces are seen too.
type Watcher struct {
	logger   zerolog.Logger
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	changes  chan struct{}
}

// NewWatcher starts watching path. Bursts of writes within debounce are
// reported once.
func NewWatcher(logger zerolog.Logger, path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		logger:   logger.With().Str("component", "project_watcher").Str("path", abs).Logger(),
		path:     abs,
		debounce: debounce,
		watcher:  fw,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Changes delivers one value per settled change. It is closed when Run
// returns.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run dispatches file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.changes)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("project file event")
			timer.Reset(w.debounce)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
				// a change is already queued
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
