// Package persist stores the settings record durably and serializes writes
// to it.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nodedesk/pkg/settings"
)

// ErrNotFound is returned by a Backend when no record exists under a name.
var ErrNotFound = errors.New("record not found")

// Backend stores opaque records by name.
type Backend interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Close() error
}

// Adapter loads and saves settings records through a Backend.
type Adapter struct {
	backend  Backend
	defaults settings.State
	log      *slog.Logger
}

// NewAdapter wraps backend. Records are decoded over defaults, so fields the
// stored record lacks take their default value.
func NewAdapter(backend Backend, defaults settings.State, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{backend: backend, defaults: defaults, log: logger}
}

// Load returns the record stored under name. A missing or unreadable record
// reports false; the cause is logged, never returned.
func (a *Adapter) Load(ctx context.Context, name string) (settings.State, bool) {
	data, err := a.backend.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		a.log.Debug("Persist: no stored record", "name", name)
		return settings.State{}, false
	}
	if err != nil {
		a.log.Warn("Persist: failed to read record, using defaults", "name", name, "error", err)
		return settings.State{}, false
	}

	st, err := settings.Decode(data, a.defaults)
	if err != nil {
		a.log.Warn("Persist: corrupt record, using defaults", "name", name, "error", err)
		return settings.State{}, false
	}
	return st, true
}

// Save writes st under name.
func (a *Adapter) Save(ctx context.Context, name string, st settings.State) error {
	data, err := settings.Encode(st)
	if err != nil {
		return err
	}
	if err := a.backend.Put(ctx, name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
