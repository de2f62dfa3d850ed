package persist

import (
	"context"
	"io"

	"nodedesk/pkg/store"
)

// SQLiteBackend keeps records in the persistent_state table.
type SQLiteBackend struct {
	st     store.StateStore
	closer io.Closer
}

// NewSQLiteBackend wraps st. closer, if non-nil, is closed with the backend.
func NewSQLiteBackend(st store.StateStore, closer io.Closer) *SQLiteBackend {
	return &SQLiteBackend{st: st, closer: closer}
}

func (b *SQLiteBackend) Get(ctx context.Context, name string) ([]byte, error) {
	val, ok, err := b.st.GetState(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(val), nil
}

func (b *SQLiteBackend) Put(ctx context.Context, name string, data []byte) error {
	return b.st.SetState(ctx, name, string(data))
}

func (b *SQLiteBackend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
