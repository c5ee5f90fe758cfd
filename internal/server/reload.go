package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloadable is anything that can re-read its configuration.
type Reloadable interface {
	Reload() error
}

// Reloader watches configuration files and triggers hot-reload. It watches
// the parent directories so files replaced by rename, or created after
// startup, are still picked up.
type Reloader struct {
	watcher *fsnotify.Watcher
	target  Reloadable
	files   map[string]bool
	log     *slog.Logger
	delay   time.Duration
}

// NewReloader creates a file watcher for the given paths. Empty paths are
// ignored.
func NewReloader(target Reloadable, paths []string, log *slog.Logger) (*Reloader, error) {
	if log == nil {
		log = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Warn("config directory not watched", "dir", dir, "error", err)
			continue
		}
		dirs[dir] = true
	}

	return &Reloader{
		watcher: watcher,
		target:  target,
		files:   files,
		log:     log,
		delay:   500 * time.Millisecond,
	}, nil
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: editors emit several events per save.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !r.files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(r.delay, func() {
				if err := r.target.Reload(); err != nil {
					r.log.Error("hot-reload failed, keeping previous configuration", "file", name, "error", err)
					return
				}
				r.log.Info("hot-reload: configuration reloaded", "file", name)
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("file watcher error", "error", err)
		}
	}
}
