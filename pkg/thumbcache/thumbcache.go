// Package thumbcache stores generated thumbnail artifacts on the local
// filesystem, keyed by a hash of the source object key.
package thumbcache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Cache is a local directory of thumbnail artifacts.
type Cache struct {
	dir string
}

// NewCache creates the cache rooted at dir, creating the directory if needed.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("thumbnail cache directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// PathFor returns the artifact path for an object key.
func (c *Cache) PathFor(objectKey string) string {
	sum := sha1.Sum([]byte(objectKey))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".jpg")
}

// Exists reports whether an artifact is present at path.
func (c *Cache) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the artifact at path. A missing artifact is reported via the
// removed flag, not as an error: the cache tolerates files already gone.
func (c *Cache) Remove(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to remove thumbnail artifact: %w", err)
}
