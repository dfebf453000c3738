package blobstore

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBBackend is a Backend over syndtr/goleveldb, the lighter-weight
// alternative to PebbleBackend for small or short-lived fakeserver
// instances (tests, local demos).
type LevelDBBackend struct {
	db   *leveldb.DB
	path string
}

// OpenLevelDBBackend opens (creating if missing) a goleveldb database
// at path.
func OpenLevelDBBackend(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open leveldb at %s: %w", path, err)
	}
	return &LevelDBBackend{db: db, path: path}, nil
}

func (b *LevelDBBackend) Name() string { return fmt.Sprintf("leveldb(%s)", b.path) }

func (b *LevelDBBackend) Get(key string) ([]byte, error) {
	value, err := b.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: leveldb get %s: %w", key, err)
	}
	return value, nil
}

func (b *LevelDBBackend) Put(key string, value []byte) error {
	if err := b.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("blobstore: leveldb put %s: %w", key, err)
	}
	return nil
}

func (b *LevelDBBackend) Delete(key string) error {
	if err := b.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("blobstore: leveldb delete %s: %w", key, err)
	}
	return nil
}

func (b *LevelDBBackend) ForEach(fn func(key string, value []byte) error) error {
	iter := b.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(string(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
