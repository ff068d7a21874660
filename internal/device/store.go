package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File permission constants, matching the database package.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// FileStore reads and writes the JSON device cache document.
//
// The document maps device IP to {port, canonical_name, serial_number,
// last_seen}. There is no cross-process lock: concurrent external writers
// can race, and the loser's update is lost.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the cache file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Read decodes the cache file.
// A missing file returns an empty cache and os.ErrNotExist.
func (s *FileStore) Read() (*Cache, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return NewCache(), err
	}

	var doc map[string]cacheEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return NewCache(), fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	cache := NewCache()
	for ip, entry := range doc {
		rec := Record{
			IP:            ip,
			Port:          entry.Port,
			CanonicalName: entry.CanonicalName,
			SerialNumber:  entry.SerialNumber,
		}
		if t, err := time.Parse(time.RFC3339Nano, entry.LastSeen); err == nil {
			rec.LastSeen = t.UTC()
		}
		_ = cache.Put(rec) //nolint:errcheck // Entries with an empty key are dropped
	}
	return cache, nil
}

// Write encodes the cache to disk atomically (temp file + rename).
func (s *FileStore) Write(cache *Cache) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	doc := make(map[string]cacheEntry, cache.Len())
	for _, rec := range cache.Records() {
		doc[rec.IP] = cacheEntry{
			Port:          rec.Port,
			CanonicalName: rec.CanonicalName,
			SerialNumber:  rec.SerialNumber,
			LastSeen:      rec.LastSeen.UTC().Format(time.RFC3339Nano),
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".device_cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // No-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("setting cache permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}

// isMissing reports whether err means the cache file does not exist yet.
func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
