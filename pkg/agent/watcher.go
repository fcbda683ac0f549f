package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ai-chatbot-be/internal/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the registry whenever the agents file changes, until ctx is
// done. The directory is watched so that editors replacing the file are
// picked up too.
func (r *Registry) Watch(ctx context.Context, log logger.ILogger) error {
	if r.path == "" {
		return fmt.Errorf("registry has no agents file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", r.path, err)
	}

	target := filepath.Clean(r.path)

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				if err := r.Reload(); err != nil {
					log.Warn("AGENT", "Failed to reload agents file, keeping previous agents", map[string]interface{}{
						"path":  r.path,
						"error": err.Error(),
					})
					continue
				}
				log.Info("AGENT", "Agents file reloaded", map[string]interface{}{
					"path": r.path,
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("AGENT", "Agents file watcher error", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}()

	return nil
}
