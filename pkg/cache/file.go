package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache stores entries on disk, one payload file per key. Canonical
// graph blobs for large dumps run to tens of megabytes, so payloads are
// written raw rather than wrapped in an encoded envelope; the expiry
// timestamp lives in a small sidecar file next to the payload.
type FileCache struct {
	dir string
}

// NewFileCache opens a file-backed cache rooted at dir, creating the
// directory if needed. The default location is ~/.cache/heapscope.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

const expirySuffix = ".expires"

// Get returns the payload for key, or a miss if the entry is absent or
// past its expiry. Expired entries are removed on read; a payload that
// cannot be read is reported as an error and left in place.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	if expired, err := c.pastExpiry(path); err != nil || expired {
		if expired {
			c.remove(path)
		}
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes the payload for key. A ttl of zero or less means the entry
// never expires; graph entries use TTLGraph, report entries TTLReport.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	if ttl <= 0 {
		// No sidecar means no expiry. Drop any stale one from a
		// previous Set with a ttl.
		err := os.Remove(path + expirySuffix)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	expiry := time.Now().Add(ttl).Format(time.RFC3339Nano)
	return os.WriteFile(path+expirySuffix, []byte(expiry), 0644)
}

// Delete removes the entry for key. Deleting an absent key is not an
// error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	return c.remove(c.path(key))
}

// Close is a no-op; the cache holds no open handles between calls.
func (c *FileCache) Close() error {
	return nil
}

// pastExpiry reports whether the sidecar for path marks the entry as
// expired. A missing or unparseable sidecar counts as never-expiring;
// an unparseable one is dropped so it cannot mask future Sets.
func (c *FileCache) pastExpiry(path string) (bool, error) {
	raw, err := os.ReadFile(path + expirySuffix)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	expiry, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(raw)))
	if err != nil {
		_ = os.Remove(path + expirySuffix)
		return false, nil
	}
	return time.Now().After(expiry), nil
}

func (c *FileCache) remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(path + expirySuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path maps a cache key to a payload file. Keys carry a class prefix
// ("graph:<hash>", "report:<hash>"), which becomes a subdirectory so
// graph blobs and rendered reports can be inspected or cleared
// separately. The hashed remainder is split one level deeper to keep
// directories small when many dumps share a cache.
func (c *FileCache) path(key string) string {
	class := "misc"
	rest := key
	if i := strings.IndexByte(key, ':'); i > 0 {
		class = key[:i]
		rest = key[i+1:]
	}
	name := Hash([]byte(rest))
	return filepath.Join(c.dir, class, name[:2], name[2:]+".dat")
}

var _ Cache = (*FileCache)(nil)
