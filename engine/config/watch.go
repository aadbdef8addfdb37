package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Carmen-Shannon/oxy-2d/common"
)

// Watch reloads a config file whenever it changes and passes each valid result to fn. Files that fail
// to load are logged and skipped. The parent directory is watched so editors that replace the file
// on save are followed. Watch blocks until ctx is done.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the config file
//   - fn: called on the watching goroutine with every successfully reloaded config
//
// Returns:
//   - error: an error if the watcher cannot be created, nil when ctx ends the watch
func Watch(ctx context.Context, path string, fn func(Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch %q: %w", path, err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %q: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c, err := Load(abs)
			if err != nil {
				common.Logger().Warn("config reload failed", "path", abs, "error", err)
				continue
			}
			common.Logger().Info("config reloaded", "path", abs)
			fn(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			common.Logger().Warn("config watcher error", "path", abs, "error", err)
		}
	}
}
