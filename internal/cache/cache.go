// Package cache provides a persistent, bounded-memory content-addressed
// cache, used by the chunker/embedder (C9) to avoid recomputing an
// embedding vector for chunk text seen before in this deployment.
//
// Two implementations are provided, mirroring the teacher's own cache
// stack: an in-memory map for tests and ephemeral deployments, and a
// bbolt-backed store for production, both of which can be wrapped with
// the S3-FIFO eviction layer in s3fifo.go to bound memory and disk size.
package cache

import (
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// Store is the persistent key/value cache interface. Keys are
// content-hash strings (hex-encoded SHA-256 of the cached input); values
// are opaque serialized bytes (e.g. a float32 embedding vector). All
// implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value for key, if present.
	Get(key string) (value []byte, ok bool)

	// Set stores key → value, overwriting any existing entry.
	Set(key string, value []byte)

	// Delete removes key, if present.
	Delete(key string)

	// Close releases any resources held by the store.
	Close() error
}

// --- memoryStore ---

type memoryStore struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemoryStore returns an in-memory Store, used in tests and as a
// fallback when no bbolt path is configured.
func NewMemoryStore() Store {
	return &memoryStore{store: make(map[string][]byte)}
}

func (c *memoryStore) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *memoryStore) Set(key string, value []byte) {
	c.mu.Lock()
	c.store[key] = value
	c.mu.Unlock()
}

func (c *memoryStore) Delete(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

func (c *memoryStore) Close() error { return nil }

// --- boltStore ---

const boltBucket = "embedding_cache"

type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at path and ensures
// the bucket exists.
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open bbolt store %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("cache: create bbolt bucket: %w", err)
	}
	return &boltStore{db: db}, nil
}

func (c *boltStore) Get(key string) ([]byte, bool) {
	var value []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, value != nil
}

func (c *boltStore) Set(key string, value []byte) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", boltBucket)
		}
		return b.Put([]byte(key), value)
	})
}

func (c *boltStore) Delete(key string) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (c *boltStore) Close() error {
	return c.db.Close()
}
