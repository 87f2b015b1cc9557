package main

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cristianoliveira/chat-intray/internal/api"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/dispatch"
	apperrors "github.com/cristianoliveira/chat-intray/internal/errors"
	"github.com/cristianoliveira/chat-intray/internal/notify"
	"github.com/cristianoliveira/chat-intray/internal/store"
)

var errHandler apperrors.Handler = apperrors.NewDefaultCLIHandler()

// Shared dependencies for all commands. Opened lazily on first use so that
// config is loaded before the store path is resolved.
var (
	depsOnce   sync.Once
	depsErr    error
	kvStore    store.Store
	center     *notify.Center
	apiClient  *api.Client
	dispatcher *dispatch.Dispatcher
)

func ensureDeps() error {
	depsOnce.Do(func() {
		stateDir := config.Get("state_dir", "/tmp/chat-intray")
		dbPath := filepath.Join(stateDir, "store.db")
		s, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			depsErr = fmt.Errorf("open store %s: %w", dbPath, err)
			return
		}
		kvStore = s
		center = notify.NewCenter(kvStore)
		apiClient = api.NewClient()
		dispatcher = dispatch.NewDispatcher(kvStore)
	})
	return depsErr
}

func closeDeps() {
	if center != nil {
		_ = center.Close()
	}
	if kvStore != nil {
		_ = kvStore.Close()
	}
}
