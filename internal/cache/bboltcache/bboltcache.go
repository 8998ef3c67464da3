// Package bboltcache is a file-backed TTL cache for finished analysis results.
//
// Expiry is lazy: an expired entry is deleted on the read that discovers it,
// not by a background sweeper.
package bboltcache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/attunelabs/attune/internal/platform/timeouts"
)

var bucketResults = []byte("results")

// entryHeader prefixes each stored value with its expiry in Unix milliseconds.
const entryHeaderSize = 8

// Cache stores byte values under string keys with per-entry TTLs.
type Cache struct {
	db    *bolt.DB
	clock func() time.Time
}

// Open opens or creates the cache file.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeouts.CacheOpen})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResults)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &Cache{db: db, clock: time.Now}, nil
}

// Close releases the cache file.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the value for key if present and unexpired. An expired entry is
// deleted and reported as a miss.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	if c == nil || c.db == nil {
		return nil, false, nil
	}
	var value []byte
	expired := false
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketResults).Get([]byte(key))
		if raw == nil {
			return nil
		}
		expiresAt, payload, err := decodeEntry(raw)
		if err != nil {
			expired = true
			return nil
		}
		if !expiresAt.After(c.clock()) {
			expired = true
			return nil
		}
		value = append([]byte(nil), payload...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if expired {
		err := c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketResults).Delete([]byte(key))
		})
		if err != nil {
			return nil, false, fmt.Errorf("cache expire: %w", err)
		}
		return nil, false, nil
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

// SetWithTTL stores value under key until now+ttl.
func (c *Cache) SetWithTTL(key string, value []byte, ttl time.Duration) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("cache is not open")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	entry := encodeEntry(c.clock().Add(ttl), value)
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).Put([]byte(key), entry)
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// DeletePattern removes every entry whose key starts with prefix.
func (c *Cache) DeletePattern(prefix string) error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketResults).Cursor()
		p := []byte(prefix)
		for key, _ := cursor.Seek(p); key != nil && bytes.HasPrefix(key, p); key, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete pattern: %w", err)
	}
	return nil
}

func encodeEntry(expiresAt time.Time, value []byte) []byte {
	entry := make([]byte, entryHeaderSize+len(value))
	binary.BigEndian.PutUint64(entry, uint64(expiresAt.UnixMilli()))
	copy(entry[entryHeaderSize:], value)
	return entry
}

func decodeEntry(raw []byte) (time.Time, []byte, error) {
	if len(raw) < entryHeaderSize {
		return time.Time{}, nil, fmt.Errorf("cache entry is truncated")
	}
	millis := int64(binary.BigEndian.Uint64(raw))
	return time.UnixMilli(millis).UTC(), raw[entryHeaderSize:], nil
}
