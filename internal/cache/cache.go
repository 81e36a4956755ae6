// Package cache implements the on-disk store of GitHub API results, keyed
// by repository, branch and addon, so repeated runs avoid redundant
// network calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTTL is the default time-to-live for cache entries. Commit
	// to PR associations barely change, so entries live for days.
	DefaultTTL = 72 * time.Hour

	// CacheDir is the directory where cache files are stored
	CacheDir = ".cache/oca-port"
)

// Store is the cache interface injected into the PR grouper, so tests can
// supply a fake and assert on read/write calls.
type Store interface {
	// Get retrieves a cached item by key into v, reporting a hit
	Get(key string, v interface{}) (bool, error)

	// Set stores an item in the cache
	Set(key string, v interface{}) error

	// Clear removes all cache entries for this store
	Clear() error
}

// Cache is a filesystem-backed Store. Entries are JSON files named after
// the hash of their key, grouped per repository.
type Cache struct {
	baseDir string
	ttl     time.Duration
}

// Entry represents a cached item with metadata
type Entry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// New creates a cache instance scoped to the given repository name.
func New(repoName string) (*Cache, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	cacheDir := filepath.Join(homeDir, CacheDir, repoName)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{
		baseDir: cacheDir,
		ttl:     DefaultTTL,
	}, nil
}

// SetTTL sets the time-to-live for cache entries
func (c *Cache) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Get retrieves a cached item by key
func (c *Cache) Get(key string, v interface{}) (bool, error) {
	path := c.getPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // Cache miss
		}
		return false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Invalid cache entry, treat as miss
		_ = os.Remove(path)
		return false, nil
	}

	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return false, nil // Cache expired
	}

	if err := json.Unmarshal(entry.Data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return true, nil
}

// Set stores an item in the cache
func (c *Cache) Set(key string, v interface{}) error {
	path := c.getPath(key)

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	now := time.Now()
	entry := Entry{
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.WriteFile(path, entryData, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Clear removes all cache entries of this repository.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(c.baseDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove cache file %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// getPath generates a filesystem path for a cache key
func (c *Cache) getPath(key string) string {
	hash := sha256.Sum256([]byte(key))
	filename := hex.EncodeToString(hash[:]) + ".json"
	return filepath.Join(c.baseDir, filename)
}

// GenerateKey creates a cache key from components, typically
// (repo, branch, addon).
func GenerateKey(components ...string) string {
	return strings.Join(components, ":")
}

// Disabled is a Store that always misses and drops writes. Used with
// --no-cache; correctness is unchanged, only network traffic grows.
type Disabled struct{}

// Get always reports a miss
func (Disabled) Get(key string, v interface{}) (bool, error) { return false, nil }

// Set drops the write
func (Disabled) Set(key string, v interface{}) error { return nil }

// Clear does nothing
func (Disabled) Clear() error { return nil }
