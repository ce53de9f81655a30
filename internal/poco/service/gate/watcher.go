package gate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/libreassistant/poco/pkg/logger"
	"github.com/libreassistant/poco/pkg/utils/safego"
)

// WatchGrants reloads the grants file whenever it changes on disk, so edits
// made outside the API take effect without a restart. The watcher stops when
// ctx is cancelled.
func (m *Module) WatchGrants(ctx context.Context) error {
	if m.grantsFile == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the parent directory; editors commonly replace the file instead
	// of writing it in place.
	dir := filepath.Dir(m.grantsFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}

	safego.Go(ctx, func() {
		defer func() { _ = w.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(m.grantsFile) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := m.Reload(); err != nil {
					logger.WarnX("gate", "reload grants after change: %v", err)
					continue
				}
				logger.InfoX("gate", "grants reloaded from %s", m.grantsFile)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.WarnX("gate", "grants watcher: %v", err)
			}
		}
	})

	return nil
}
