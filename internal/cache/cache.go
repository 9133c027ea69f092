package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache is a filesystem-backed TTL cache for API responses. It is the only
// mutable resource shared across runs. Writes go to a temporary file and are
// renamed into place atomically; concurrent readers are safe and the write
// policy is write-or-skip-if-fresher per key.
type Cache struct {
	dir string
	ttl time.Duration
}

// New creates a cache rooted at dir with the given freshness window
func New(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// keyPath maps a cache key to its on-disk location
func (c *Cache) keyPath(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get retrieves a cached value into dest. A miss (absent or expired entry)
// returns (false, nil); expired entries are never partially reused.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	path := c.keyPath(key)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // Cache miss
		}
		return false, fmt.Errorf("failed to stat cache entry: %w", err)
	}

	if time.Since(info.ModTime()) >= c.ttl {
		return false, nil // Expired, caller refetches
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return true, nil
}

// Set stores a value under key. When a fresh entry already exists the write
// is skipped: last-writer-wins only applies to stale keys.
func (c *Cache) Set(key string, value interface{}) error {
	path := c.keyPath(key)

	if info, err := os.Stat(path); err == nil {
		if time.Since(info.ModTime()) < c.ttl {
			return nil // Existing entry is fresher, skip
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Age returns how old the entry for key is. The second return is false when
// no entry exists.
func (c *Cache) Age(key string) (time.Duration, bool) {
	info, err := os.Stat(c.keyPath(key))
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// Purge removes every expired entry from the cache directory
func (c *Cache) Purge() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) >= c.ttl {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}
