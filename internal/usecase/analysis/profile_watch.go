package analysis

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
)

// Watch reloads the profile whenever the file changes, until ctx is
// cancelled. The parent directory is watched rather than the file itself
// because most editors replace files by rename, which drops a file-level
// watch.
func (s *ProfileStore) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create watcher")
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errs.Wrapf(err, "watch %s", dir)
	}

	target := filepath.Clean(path)
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
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.LoadFrom(target); err != nil {
					logging.Warn(ctx, "profile reload failed, keeping previous profile",
						slog.String("path", target),
						slog.Any("err", errs.Loggable(err)),
					)
					continue
				}
				logging.Info(ctx, "analysis profile reloaded", slog.String("path", target))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn(ctx, "profile watcher error", slog.Any("err", errs.Loggable(err)))
			}
		}
	}()
	return nil
}
