// Package blobstore is a content-addressed store for TreeStructuredData
// payloads, used only by internal/fakeserver's authoritative backend
// (the client-side synchronization core never persists the synced tree
// itself). A Backend is one of the interchangeable on-disk engines in
// this package; Store fronts a Backend with an in-memory LRU cache and
// an interchangeable Compressor.
package blobstore

import (
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/latticedb/sync-core/internal/blobstore/compression"
	"github.com/latticedb/sync-core/internal/data"
)

// Backend is one interchangeable on-disk engine a Store can sit on top
// of. Keys are hex-encoded content hashes (data.Hash's format).
type Backend interface {
	Name() string
	Get(key string) ([]byte, error) // ErrNotFound if absent
	Put(key string, value []byte) error
	Delete(key string) error
	ForEach(fn func(key string, value []byte) error) error
	Close() error
}

// Store is a content-addressed cache-fronted view over a Backend.
// Put/Get operate on whole TSD subtrees, keyed by data.Hash of the
// value stored.
type Store struct {
	backend    Backend
	compressor compression.Compressor
	cache      *lru.Cache[string, *data.TSD]
}

// New builds a Store over backend, caching up to cacheSize decoded
// values and compressing stored payloads with compressor.
func New(backend Backend, cacheSize int, compressor compression.Compressor) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 1000
	}
	if compressor == nil {
		compressor = &compression.NoCompressor{}
	}
	cache, err := lru.New[string, *data.TSD](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("blobstore: new cache: %w", err)
	}
	return &Store{backend: backend, compressor: compressor, cache: cache}, nil
}

// record is the on-disk envelope: a compression flag plus the wire-form
// JSON encoding of the TSD (internal/data/wire.go's ToWire/FromWire),
// compressed when the flag is set; encoding/json stores it as base64.
type record struct {
	Compressed bool   `json:"c"`
	Payload    []byte `json:"p"`
}

// Put stores t and returns its content hash.
func (s *Store) Put(t *data.TSD) (string, error) {
	key := data.Hash(t)

	payload, err := json.Marshal(data.ToWire(t))
	if err != nil {
		return "", fmt.Errorf("blobstore: marshal: %w", err)
	}

	rec := record{Payload: payload}
	if s.compressor.Name() != "none" {
		compressed, err := s.compressor.Compress(payload)
		if err == nil && len(compressed) > 0 && len(compressed) < len(payload) {
			rec.Compressed = true
			rec.Payload = compressed
		}
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("blobstore: marshal envelope: %w", err)
	}
	if err := s.backend.Put(key, encoded); err != nil {
		return "", fmt.Errorf("blobstore: put %s: %w", key, err)
	}

	s.cache.Add(key, t)
	return key, nil
}

// Get retrieves the TSD stored under key, or ErrNotFound.
func (s *Store) Get(key string) (*data.TSD, error) {
	if t, ok := s.cache.Get(key); ok {
		return t, nil
	}

	raw, err := s.backend.Get(key)
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("blobstore: unmarshal envelope for %s: %w", key, err)
	}
	payload := []byte(rec.Payload)
	if rec.Compressed {
		payload, err = s.compressor.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("blobstore: decompress %s: %w", key, err)
		}
	}

	var wire interface{}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("blobstore: unmarshal payload for %s: %w", key, err)
	}
	t := data.FromWire(wire)
	s.cache.Add(key, t)
	return t, nil
}

// Delete removes key from both the cache and the backend.
func (s *Store) Delete(key string) error {
	s.cache.Remove(key)
	return s.backend.Delete(key)
}

// Close releases the underlying Backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
