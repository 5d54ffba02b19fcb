// Package app wires configuration, storage, auth and the chat backend into a
// ready workspace.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0xcro3dile/ao-assistant/internal/adapters/auth"
	"github.com/0xcro3dile/ao-assistant/internal/adapters/backend"
	"github.com/0xcro3dile/ao-assistant/internal/adapters/filewatcher"
	"github.com/0xcro3dile/ao-assistant/internal/adapters/loader"
	"github.com/0xcro3dile/ao-assistant/internal/adapters/parser"
	"github.com/0xcro3dile/ao-assistant/internal/adapters/store"
	"github.com/0xcro3dile/ao-assistant/internal/config"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
	"github.com/0xcro3dile/ao-assistant/internal/domain/usecases"
)

// App holds the long-lived components of one process.
type App struct {
	Config    *config.Config
	Auth      *auth.Provider
	Backend   ports.ChatBackend
	Loader    *loader.FileLoader
	Workspace *usecases.Workspace

	kv *store.SQLiteStore
}

// New opens the store, restores the persisted state and builds the
// configured backend. The workspace follows auth state changes until Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	kv, err := store.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	states := store.NewStateStore(kv)
	provider := auth.NewProvider(cfg.AuthURL, cfg.AuthAnonKey, kv)

	persisted, err := states.LoadState(ctx)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("loading state: %w", err)
	}

	chat, err := backend.New(cfg, provider, persisted.Settings.APIToken)
	if err != nil {
		kv.Close()
		return nil, err
	}

	var pdf *parser.PDFService
	if cfg.PDFServiceURL != "" {
		pdf = parser.NewPDFService(cfg.PDFServiceURL)
	}

	ws := usecases.NewWorkspace(chat, states, parser.NewExtractor(pdf), usecases.WorkspaceConfig{
		SettleDelay:       cfg.BatchSettleDelay,
		ClearAfterSuccess: cfg.ProgressClearSuccess,
		ClearAfterError:   cfg.ProgressClearError,
	})
	ws.Restore(ctx)
	ws.WatchAuth(ctx, provider)

	slog.Debug("app initialized", "backend", cfg.Backend, "data_dir", cfg.DataDir)

	return &App{
		Config:    cfg,
		Auth:      provider,
		Backend:   chat,
		Loader:    loader.NewFileLoader(),
		Workspace: ws,
		kv:        kv,
	}, nil
}

// DropFolder builds a drop-folder ingester for the supported upload types.
func (a *App) DropFolder() (*usecases.DropFolder, error) {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.Loader.SupportedExtensions(), a.Config.WatchSettle)
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return usecases.NewDropFolder(watcher, a.Loader, a.Workspace), nil
}

// Close stops the workspace and closes the store.
func (a *App) Close() error {
	a.Workspace.Close()
	return a.kv.Close()
}
