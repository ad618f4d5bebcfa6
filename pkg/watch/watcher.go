// Package watch invalidates conversion cache entries when workspace files
// change on disk. The watcher touches only the cache; record store state is
// rewritten by the maintenance stages, never from filesystem events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/convertcache"
)

// Watcher follows a workspace base directory and drops stale cache entries.
type Watcher struct {
	baseDir   string
	recursive bool
	cache     *convertcache.Cache
	watcher   *fsnotify.Watcher
	logger    *zap.Logger
}

// NewWatcher creates a watcher over baseDir. With recursive set, existing
// subdirectories are watched too and new ones are added as they appear.
func NewWatcher(baseDir string, recursive bool, cache *convertcache.Cache, logger *zap.Logger) (*Watcher, error) {
	if cache == nil {
		return nil, fmt.Errorf("conversion cache is required")
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		baseDir:   abs,
		recursive: recursive,
		cache:     cache,
		watcher:   fsw,
		logger:    logger,
	}

	if err := w.addDirs(); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

func (w *Watcher) addDirs() error {
	if !w.recursive {
		return w.watcher.Add(w.baseDir)
	}

	return filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.baseDir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	name := filepath.Clean(event.Name)
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return
	}

	// New subdirectories need their own watch to see files created inside.
	if w.recursive && event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.watcher.Add(name); err != nil {
				w.logger.Warn("watching new directory", zap.String("path", name), zap.Error(err))
			}
			return
		}
	}

	removed, err := w.cache.InvalidateSource(name)
	if err != nil {
		w.logger.Warn("invalidating cache entries",
			zap.String("path", name),
			zap.Error(err),
		)
		return
	}

	if removed > 0 {
		w.logger.Debug("cache entries invalidated",
			zap.String("path", name),
			zap.Int("removed", removed),
			zap.String("op", event.Op.String()),
		)
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
