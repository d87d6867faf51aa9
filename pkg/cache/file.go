package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fbecker/strategraph/pkg/errors"
)

// FileCache persists entries as JSON files under a root directory,
// sharded by the first two characters of the hashed key. Corrupt or
// expired entries are removed on read and reported as misses.
type FileCache struct {
	dir string
}

// NewFileCache creates the cache root if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cache directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create cache directory %s", dir)
	}
	return &FileCache{dir: dir}, nil
}

// fileEntry is the on-disk envelope. A nil ExpiresAt never expires.
type fileEntry struct {
	Data      []byte     `json:"data"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+".json")
}

func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	p := c.path(key)
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(errors.ErrCodeStore, err, "read cache entry")
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Unreadable entries are treated as misses and cleaned up.
		_ = os.Remove(p)
		return nil, false, nil
	}
	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		_ = os.Remove(p)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := fileEntry{Data: data}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		entry.ExpiresAt = &exp
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode cache entry")
	}

	p := c.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "create cache shard")
	}

	// Write through a temp file so readers never observe partial data.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write cache entry")
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeStore, err, "commit cache entry")
	}
	return nil
}

func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeStore, err, "delete cache entry")
	}
	return nil
}

// Sweep removes every expired entry under the cache root. It is meant
// for periodic maintenance and walks the whole tree.
func (c *FileCache) Sweep(ctx context.Context) (removed int, err error) {
	now := time.Now()
	walkErr := filepath.WalkDir(c.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || filepath.Ext(p) != ".json" {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		var entry fileEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			if os.Remove(p) == nil {
				removed++
			}
			return nil
		}
		if entry.ExpiresAt != nil && now.After(*entry.ExpiresAt) {
			if os.Remove(p) == nil {
				removed++
			}
		}
		return nil
	})
	if walkErr != nil {
		return removed, errors.Wrap(errors.ErrCodeStore, walkErr, "sweep cache")
	}
	return removed, nil
}

func (c *FileCache) Close() error { return nil }

var _ Cache = (*FileCache)(nil)
