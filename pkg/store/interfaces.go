package store

import "context"

// StateStore handles persistent application state keyed by record name.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
