package i18n

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the catalog from dir whenever a locale file changes, until
// ctx ends. A broken file is logged and the previous tables are kept.
func (c *Catalog) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if strings.ToLower(filepath.Ext(event.Name)) != ".yaml" {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					pending = time.After(reloadDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("locale watcher error", "error", err)
			case <-pending:
				pending = nil
				if err := c.Reload(os.DirFS(dir)); err != nil {
					logger.Error("locale reload failed", "dir", dir, "error", err)
					continue
				}
				logger.Info("locales reloaded", "dir", dir)
			}
		}
	}()
	return nil
}
