package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiskCache persists dataset bodies between runs.
// Each entry is a raw .data file plus a .meta JSON sidecar holding the expiry,
// so multi-hundred-megabyte downloads are not re-encoded.
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

type entryMeta struct {
	ExpiresAt time.Time `json:"expires_at"`
	Size      int       `json:"size"`
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	raw, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return nil, false
	}

	var meta entryMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false
	}

	if time.Now().After(meta.ExpiresAt) {
		_ = c.Delete(key)
		return nil, false
	}

	data, err := os.ReadFile(c.dataPath(key))
	if err != nil || len(data) != meta.Size {
		return nil, false
	}

	return data, true
}

// Set stores a value in the disk cache
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// data first: a meta file only exists next to a complete body
	tmp := c.dataPath(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return fmt.Errorf("write cache data: %w", err)
	}
	if err := os.Rename(tmp, c.dataPath(key)); err != nil {
		return fmt.Errorf("rename cache data: %w", err)
	}

	meta, err := json.Marshal(entryMeta{ExpiresAt: time.Now().Add(ttl), Size: len(value)})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := os.WriteFile(c.metaPath(key), meta, 0644); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	errMeta := os.Remove(c.metaPath(key))
	errData := os.Remove(c.dataPath(key))
	if errMeta != nil && !errors.Is(errMeta, os.ErrNotExist) {
		return errMeta
	}
	if errData != nil && !errors.Is(errData, os.ErrNotExist) {
		return errData
	}
	return nil
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

func (c *DiskCache) dataPath(key string) string {
	return filepath.Join(c.dir, fileName(key)+".data")
}

func (c *DiskCache) metaPath(key string) string {
	return filepath.Join(c.dir, fileName(key)+".meta")
}

// fileName makes a key safe for all filesystems (':' is reserved on Windows)
func fileName(key string) string {
	out := []byte(key)
	for i, b := range out {
		if b == ':' {
			out[i] = '_'
		}
	}
	return string(out)
}
