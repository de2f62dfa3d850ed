package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"nodedesk/pkg/config"
	"nodedesk/pkg/core"
	"nodedesk/pkg/db"
	"nodedesk/pkg/persist"
	"nodedesk/pkg/store"
)

// app bundles the store with the adapter it owns.
type app struct {
	Store   *core.Store
	adapter *persist.Adapter
	log     *slog.Logger
}

func openBackend(cfg *config.Config) (persist.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return persist.NewFileBackend(cfg.DataDir)
	case config.BackendSQLite:
		d, err := db.Init(filepath.Join(cfg.DataDir, "nodedesk.db"))
		if err != nil {
			return nil, err
		}
		st := store.NewSQLiteStore(d)
		return persist.NewSQLiteBackend(st, st), nil
	case config.BackendLevelDB:
		return persist.NewLevelDBBackend(filepath.Join(cfg.DataDir, "settings.ldb"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	ver := appVersion(cfg)
	defaults := cfg.SettingsDefaults(ver)
	adapter := persist.NewAdapter(backend, defaults, logger)

	st, err := core.New(ctx, core.Options{
		Name:       cfg.Storage.Record,
		Defaults:   defaults,
		AppVersion: ver,
		Adapter:    adapter,
		Locales:    cfg.Node.Locales,
		Logger:     logger,
	})
	if err != nil {
		adapter.Close()
		return nil, err
	}
	return &app{Store: st, adapter: adapter, log: logger}, nil
}

// Close persists the latest state, then releases the backend.
func (a *app) Close(ctx context.Context) error {
	err := a.Store.Close(ctx)
	if cerr := a.adapter.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		a.log.Error("Failed to close settings store", "error", err)
	}
	return err
}
