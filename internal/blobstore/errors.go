package blobstore

import "errors"

// ErrNotFound is returned by a Backend when no value exists for a key.
var ErrNotFound = errors.New("blobstore: not found")

// ErrClosed is returned by PebbleBackend once it has been closed.
// LevelDBBackend instead wraps goleveldb's own closed error.
var ErrClosed = errors.New("blobstore: backend closed")
