package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads a Store when its file is edited by another process.
// The parent directory is watched rather than the file itself because the
// store replaces the file by rename, which drops a watch on the old inode.
type Watcher struct {
	store    *Store
	fsw      *fsnotify.Watcher
	target   string
	debounce time.Duration
	log      *zap.Logger
}

// NewWatcher starts watching the directory that holds store's file.
func NewWatcher(store *Store, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	target, err := filepath.Abs(store.Path())
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}

	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	return &Watcher{
		store:    store,
		fsw:      fsw,
		target:   target,
		debounce: defaultDebounce,
		log:      log,
	}, nil
}

// Run processes file events until ctx is done. Bursts of events are
// coalesced into a single reload.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.log.Info("watching store file", zap.String("path", w.target))

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("store watcher error", zap.Error(err))
		}
	}
}

// Close stops the underlying file watch. It is safe to call after Run returned.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != w.target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) reload() {
	changed, err := w.store.Reload()
	if err != nil {
		w.log.Warn("ignoring unreadable store file change", zap.String("path", w.target), zap.Error(err))
		return
	}
	if !changed {
		w.log.Debug("store file event matched current content", zap.String("path", w.target))
	}
}
