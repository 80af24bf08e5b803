package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
)

const defaultDebounce = 250 * time.Millisecond

// StoreWatcher reports changes to the store file made by other processes.
// It watches the parent directory because saves replace the file by
// renaming over it.
type StoreWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

func NewStoreWatcher(path string) (*StoreWatcher, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &StoreWatcher{path: path, watcher: w, debounce: defaultDebounce}, nil
}

// Run calls onChange once per burst of events on the store file until ctx
// is done or the watcher is closed.
func (w *StoreWatcher) Run(ctx context.Context, onChange func()) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			onChange()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Debug(ctx, "Store file changed", tag.File(event.Name), tag.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error(ctx, "Watcher error", tag.Error(err))
		}
	}
}

func (w *StoreWatcher) Close() error {
	return w.watcher.Close()
}
