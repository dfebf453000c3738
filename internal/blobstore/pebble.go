package blobstore

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend is a Backend over a cockroachdb/pebble LSM tree.
type PebbleBackend struct {
	db   *pebble.DB
	path string
	open int32
}

// OpenPebbleBackend opens (creating if missing) a pebble database at
// path.
func OpenPebbleBackend(path string) (*PebbleBackend, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: mkdir %s: %w", path, err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("blobstore: open pebble at %s: %w", path, err)
	}
	return &PebbleBackend{db: db, path: path, open: 1}, nil
}

func (b *PebbleBackend) Name() string { return fmt.Sprintf("pebble(%s)", b.path) }

func (b *PebbleBackend) Get(key string) ([]byte, error) {
	if atomic.LoadInt32(&b.open) == 0 {
		return nil, ErrClosed
	}
	value, closer, err := b.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: pebble get %s: %w", key, err)
	}
	defer closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (b *PebbleBackend) Put(key string, value []byte) error {
	if atomic.LoadInt32(&b.open) == 0 {
		return ErrClosed
	}
	if err := b.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("blobstore: pebble set %s: %w", key, err)
	}
	return nil
}

func (b *PebbleBackend) Delete(key string) error {
	if atomic.LoadInt32(&b.open) == 0 {
		return ErrClosed
	}
	if err := b.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("blobstore: pebble delete %s: %w", key, err)
	}
	return nil
}

func (b *PebbleBackend) ForEach(fn func(key string, value []byte) error) error {
	if atomic.LoadInt32(&b.open) == 0 {
		return ErrClosed
	}
	iter, err := b.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("blobstore: pebble iterator: %w", err)
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(string(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (b *PebbleBackend) Close() error {
	if !atomic.CompareAndSwapInt32(&b.open, 1, 0) {
		return nil
	}
	return b.db.Close()
}
