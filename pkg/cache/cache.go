// Package cache keeps loaded model handles under a byte-size ceiling with a
// per-entry time-to-live, so repeated loads avoid redundant instantiation.
package cache

import (
	"path/filepath"
	"time"

	"github.com/modelyard/modelyard/pkg/device"
	"github.com/modelyard/modelyard/pkg/errors"
	"github.com/modelyard/modelyard/pkg/global"
	"github.com/modelyard/modelyard/pkg/util/console"
)

// Cache maps keys to live handles. The persisted index carries insertion
// timestamps and sizes; handles themselves are process-local, so an index
// entry that survives a restart has no handle behind it and is repaired
// lazily on first access.
//
// Callers must serialize access per key; the cache has no internal locking.
type Cache struct {
	dir       string
	indexPath string
	maxBytes  int64
	ttl       time.Duration

	index   *index
	handles map[string]device.Handle

	now func() time.Time
}

func New(dir string, maxBytes int64, ttl time.Duration) (*Cache, error) {
	indexPath := filepath.Join(dir, global.CacheIndexFilename)
	ix, err := loadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	if ttl == 0 {
		ttl = global.DefaultCacheTTL
	}
	return &Cache{
		dir:       dir,
		indexPath: indexPath,
		maxBytes:  maxBytes,
		ttl:       ttl,
		index:     ix,
		handles:   map[string]device.Handle{},
		now:       time.Now,
	}, nil
}

// Get returns the live handle for key, or a miss. Expired entries and
// entries whose handle cannot be materialized are invalidated and reported
// as misses, never as errors.
func (c *Cache) Get(key string) (device.Handle, bool) {
	meta, ok := c.index.Entries[key]
	if !ok {
		return nil, false
	}

	inserted, err := time.Parse(time.RFC3339Nano, meta.Timestamp)
	if err != nil || c.now().Sub(inserted) >= c.ttl {
		console.Debugf("Cache entry %s expired", key)
		if err := c.Invalidate(key); err != nil {
			console.Warnf("Invalidating expired cache entry %s: %s", key, err)
		}
		return nil, false
	}

	handle, ok := c.handles[key]
	if !ok || !handle.Alive() {
		// index claims an entry the process cannot materialize (e.g. the
		// index outlived the handles across a crash)
		console.Warnf("%s, dropping", errors.CacheCorruption(key))
		if err := c.Invalidate(key); err != nil {
			console.Warnf("Invalidating corrupt cache entry %s: %s", key, err)
		}
		return nil, false
	}

	return handle, true
}

// Put inserts a handle, evicting oldest-by-insertion entries until the new
// total fits under the ceiling or nothing is left to evict. Eviction is by
// insertion time, not access time: an old, busy entry loses to a fresh,
// idle one.
func (c *Cache) Put(key string, handle device.Handle, size int64) error {
	for c.index.TotalSize+size > c.maxBytes && len(c.index.Entries) > 0 {
		oldest := c.oldestKey()
		console.Debugf("Evicting cache entry %s to make room for %s", oldest, key)
		if err := c.Invalidate(oldest); err != nil {
			return err
		}
	}

	c.handles[key] = handle
	c.index.Entries[key] = entryMeta{
		Timestamp: c.now().Format(time.RFC3339Nano),
		Size:      size,
	}
	c.index.TotalSize += size
	return c.index.save(c.indexPath)
}

// Invalidate removes an entry and releases its handle. Unknown keys are a
// no-op.
func (c *Cache) Invalidate(key string) error {
	meta, ok := c.index.Entries[key]
	if !ok {
		return nil
	}

	if handle, ok := c.handles[key]; ok {
		if err := handle.Close(); err != nil {
			console.Warnf("Releasing cache entry %s: %s", key, err)
		}
		delete(c.handles, key)
	}

	c.index.TotalSize -= meta.Size
	delete(c.index.Entries, key)
	c.index.LastCleanup = c.now().Format(time.RFC3339Nano)
	return c.index.save(c.indexPath)
}

// Close releases every live handle. Used at shutdown.
func (c *Cache) Close() error {
	for key := range c.index.Entries {
		if err := c.Invalidate(key); err != nil {
			return err
		}
	}
	return nil
}

// TotalSize is the running byte total of live entries.
func (c *Cache) TotalSize() int64 {
	return c.index.TotalSize
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	return len(c.index.Entries)
}

func (c *Cache) oldestKey() string {
	var oldestKey string
	var oldestTime time.Time
	for key, meta := range c.index.Entries {
		ts, err := time.Parse(time.RFC3339Nano, meta.Timestamp)
		if err != nil {
			// unparseable timestamps evict first
			return key
		}
		if oldestKey == "" || ts.Before(oldestTime) {
			oldestKey = key
			oldestTime = ts
		}
	}
	return oldestKey
}
