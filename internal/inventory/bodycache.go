package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// BodyCacheDirName is where the de-dup cache's BadgerDB lives, relative to
// the inventory root (Supplemented feature 1).
const BodyCacheDirName = ".bodycache"

// BodyCache de-duplicates identical resource bodies within one recording
// session: the first resource to produce a given SHA-256 digest writes the
// content file; every subsequent resource with the same digest is
// hard-linked (falling back to a copy across filesystems) to the same
// bytes instead of being rewritten. Modeled on the teacher's BadgerCache in
// cache.go, repurposed from a request/response cache to a content-address
// store.
type BodyCache struct {
	db *badger.DB
}

// OpenBodyCache opens (creating if absent) the de-dup database under
// <inventoryDir>/.bodycache.
func OpenBodyCache(inventoryDir string) (*BodyCache, error) {
	dir := filepath.Join(inventoryDir, BodyCacheDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bodycache dir: %w", err)
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open bodycache: %w", err)
	}
	return &BodyCache{db: db}, nil
}

// Close releases the underlying Badger handle.
func (c *BodyCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// digest computes the content-address key for data.
func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// lookup returns the relative content path already holding this digest's
// bytes, if any resource in this session has written it before.
func (c *BodyCache) lookup(data []byte) (string, bool) {
	if c == nil || c.db == nil {
		return "", false
	}
	key := []byte(digest(data))
	var existing string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			existing = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false
	}
	return existing, true
}

// record remembers that digest(data) now lives at relPath, for future
// Save calls in this session.
func (c *BodyCache) record(data []byte, relPath string) {
	if c == nil || c.db == nil {
		return
	}
	key := []byte(digest(data))
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(relPath))
	})
}
