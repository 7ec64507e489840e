package windpress

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash"

	"github.com/gotailwindcss/windpress/twvfs"
)

// CacheKey hashes the volume content together with the paths a design
// system is read from, e.g. the entry point and config.
func CacheKey(vol *twvfs.Volume, parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		d.Write([]byte(p))
		d.Write([]byte{0})
	}
	if vol != nil {
		d.Write([]byte(strconv.FormatUint(vol.Hash(), 16)))
	}
	return d.Sum64()
}

// Cache keeps the last size values stored, evicting the oldest first.
// Engines keep their design systems in one so that requests over an
// unchanged volume only rerun generation.
type Cache[T any] struct {
	mu    sync.Mutex
	size  int
	keys  []uint64
	items map[uint64]T
}

// NewCache returns a cache holding at most size values.
func NewCache[T any](size int) *Cache[T] {
	if size < 1 {
		size = 1
	}
	return &Cache[T]{size: size, items: make(map[uint64]T, size)}
}

// Get returns the value stored under key.
func (c *Cache[T]) Get(key uint64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Put stores v under key.
func (c *Cache[T]) Put(key uint64, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.items[key] = v
	for len(c.keys) > c.size {
		delete(c.items, c.keys[0])
		c.keys = c.keys[1:]
	}
}

// Len returns the number of values held.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
