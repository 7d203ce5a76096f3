package recording

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// debounceTick is how often pending events are inspected.
	debounceTick = time.Second

	// settleAfter is how long a file must be quiet before it counts as
	// complete. Recorder apps keep appending while the call is live.
	settleAfter = 2 * time.Second
)

// Watcher monitors the recordings directory and invokes the trigger
// callback once new or changed audio files have settled. The trigger
// decides what a refresh means (rescan, or rescan plus sync); the
// watcher itself stays trigger-agnostic.
type Watcher struct {
	dir     string
	trigger func(ctx context.Context)
	logger  *slog.Logger
}

// NewWatcher creates a watcher for the given directory.
func NewWatcher(dir string, trigger func(ctx context.Context), logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		trigger: trigger,
		logger:  logger,
	}
}

// Watch blocks until the context is cancelled, firing the trigger when
// audio files appear or change. Rapid events for the same recording
// collapse into a single trigger.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching recordings dir: %w", err)
	}

	w.logger.Info("recordings watcher started", slog.String("dir", w.dir))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}

			if !IsAudioFile(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			fire := false
			now := time.Now()

			for path, t := range pending {
				if now.Sub(t) < settleAfter {
					continue
				}

				delete(pending, path)

				fire = true
			}

			if fire {
				w.logger.Debug("new recordings settled, triggering refresh")
				w.trigger(ctx)
			}
		}
	}
}
