package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor or a rename-save produces.
const watchDebounce = 100 * time.Millisecond

// Watch reloads baseDir/config.json whenever it changes and calls onChange
// with the freshly merged config. Invalid files are logged and skipped.
// The watcher stops when ctx is cancelled.
func Watch(ctx context.Context, baseDir string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory: saves replace the file via rename, which drops a
	// watch placed on the file itself.
	if err := watcher.Add(baseDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", baseDir, err)
	}

	go watchLoop(ctx, watcher, baseDir, onChange)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, baseDir string, onChange func(*Config)) {
	defer watcher.Close()

	target := filepath.Base(Path(baseDir))
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			cfg, err := Load(baseDir)
			if err != nil {
				slog.Warn("config reload failed", "path", Path(baseDir), "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				slog.Warn("config reload rejected", "path", Path(baseDir), "error", err)
				continue
			}
			slog.Info("config reloaded", "path", Path(baseDir))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
