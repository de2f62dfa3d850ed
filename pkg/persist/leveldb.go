package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBBackend keeps records in a LevelDB directory. LevelDB locks the
// directory, so a second process opening it fails instead of racing.
type LevelDBBackend struct {
	db *leveldb.DB
}

// NewLevelDBBackend opens (or creates) the database at path.
func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (b *LevelDBBackend) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := b.db.Get([]byte(name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *LevelDBBackend) Put(ctx context.Context, name string, data []byte) error {
	return b.db.Put([]byte(name), data, &opt.WriteOptions{Sync: true})
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
