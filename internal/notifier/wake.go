package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/nateberkopec/cardnudge/internal/persistence"
)

// WatchHandoff signals on the returned channel whenever the handoff file is
// rewritten. The directory is watched rather than the file because writes
// replace it by rename. Signals coalesce; the one-second poll still runs, so a
// dropped signal only delays a state change.
func WatchHandoff(ctx context.Context, layout persistence.Layout, logger *slog.Logger) (<-chan struct{}, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(layout.Dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", layout.Dir, err)
	}

	name := filepath.Base(layout.HandoffPath())
	wake := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("handoff watcher error", "error", err)
			}
		}
	}()

	return wake, nil
}
