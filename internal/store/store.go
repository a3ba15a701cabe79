// Package store persists per-category article batches in an embedded bbolt
// database. It is the bottom cache tier: read on startup-cold paths and
// overwritten wholesale after every successful fetch.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/newspulse-hq/newspulse/internal/domain"
)

const (
	feedBucket = "feed_cache"

	// keyPrefix matches the legacy browser storage key layout so dumps stay
	// comparable across implementations.
	keyPrefix = "news_pulse_cache_"
)

// Store wraps a bbolt database holding cache entries.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store at path, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(feedBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveEntry overwrites the cache entry for a category.
func (s *Store) SaveEntry(category domain.Category, entry domain.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(feedBucket)).Put(entryKey(category), payload)
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Entry reads the cache entry for a category. The second return reports
// whether an entry exists; freshness is the caller's concern.
func (s *Store) Entry(category domain.Category) (domain.CacheEntry, bool, error) {
	var (
		entry domain.CacheEntry
		found bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(feedBucket)).Get(entryKey(category))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode cache entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	return entry, found, nil
}

func entryKey(category domain.Category) []byte {
	return []byte(keyPrefix + string(category))
}
