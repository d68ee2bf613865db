package web

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	applog "github.com/janisto/devenv-playground/internal/platform/logging"
)

const debounce = 100 * time.Millisecond

// Watch calls onChange after files in dir are written, created, removed or
// renamed. Bursts of events within a short window trigger one call. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, dir string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	applog.LogInfo(ctx, "watching templates", zap.String("dir", dir))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			applog.LogDebug(ctx, "template changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			applog.LogWarn(ctx, "watcher error", zap.Error(err))
		case <-timer.C:
			onChange()
		}
	}
}

// Reloader re-renders the page and tells connected browsers to reload.
func Reloader(ctx context.Context, renderer *Renderer, hub *Hub) func() {
	return func() {
		if err := renderer.Render(); err != nil {
			applog.LogError(ctx, "template reload failed", err)
			return
		}
		applog.LogInfo(ctx, "templates reloaded", zap.Int("clients", hub.Broadcast()))
	}
}
