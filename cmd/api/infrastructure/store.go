package infrastructure

import (
	"fmt"

	"go.uber.org/zap"

	"json-user-service/internal/adapter/store/jsonfile"
	"json-user-service/internal/config"
)

// NewStore opens the JSON file store and, when STORE_WATCH is set, a watcher
// that reloads it on external edits. The watcher is nil otherwise.
func NewStore(cfg *config.Config, l *zap.Logger) (*jsonfile.Store, *jsonfile.Watcher, error) {
	store, err := jsonfile.Open(cfg.Store.Path, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	if !cfg.Store.Watch {
		return store, nil, nil
	}

	watcher, err := jsonfile.NewWatcher(store, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to watch store: %w", err)
	}

	return store, watcher, nil
}
