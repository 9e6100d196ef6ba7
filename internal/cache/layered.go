package cache

import (
	"sort"
	"time"
)

// LayeredCache keeps persisted documents on disk and a hot copy in memory.
// The disk layer is authoritative; memory only ever holds what disk accepted.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory layer with memoryTTL over a disk layer in diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get reads memory, then disk, promoting disk hits into memory
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	val, found := c.disk.Get(key)
	if !found {
		return nil, false
	}
	_ = c.memory.Set(key, val, 0)
	return val, true
}

// Set persists value to disk first, then refreshes the memory copy
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.disk.Set(key, value, ttl); err != nil {
		_ = c.memory.Delete(key)
		return err
	}
	return c.memory.Set(key, value, ttl)
}

// Delete drops key from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Keys lists the union of both layers
func (c *LayeredCache) Keys() ([]string, error) {
	seen := make(map[string]bool)
	for _, layer := range []Cache{c.memory, c.disk} {
		keys, err := layer.Keys()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			seen[k] = true
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
