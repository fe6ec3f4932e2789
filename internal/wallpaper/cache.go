package wallpaper

import (
	"container/list"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/wallmon/internal/logger"
)

// DefaultCacheBudget caps decoded pixel data at 256 MiB, roughly a
// dozen 4K frames.
const DefaultCacheBudget = 256 << 20

// Cache holds decoded buffers keyed by cleaned path, shared across
// sessions. Entries carry a reference count; eviction only considers
// zero-ref entries, in least-recently-used order, and only while the
// byte budget is exceeded. Correctness never depends on a hit: a
// stale or missing entry is simply re-decoded.
type Cache struct {
	decoder Decoder
	budget  int64

	mu      sync.Mutex
	entries map[string]*cacheEntry
	lru     *list.List // front = most recently used
	bytes   int64
}

type cacheEntry struct {
	buf  *Buffer
	refs int
	elem *list.Element
}

// NewCache creates a cache backed by the given decoder. A budget of 0
// uses DefaultCacheBudget.
func NewCache(decoder Decoder, budget int64) *Cache {
	if budget <= 0 {
		budget = DefaultCacheBudget
	}
	return &Cache{
		decoder: decoder,
		budget:  budget,
		entries: make(map[string]*cacheEntry),
		lru:     list.New(),
	}
}

// Acquire returns the buffer for path, decoding on a miss or when the
// file's modification time has advanced past the cached copy. The
// returned buffer is referenced and must be paired with Release.
func (c *Cache) Acquire(path string) (*Buffer, error) {
	key := filepath.Clean(path)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if fresh(entry.buf) {
			entry.refs++
			c.lru.MoveToFront(entry.elem)
			c.mu.Unlock()
			return entry.buf, nil
		}
		c.dropLocked(key, entry)
	}
	c.mu.Unlock()

	// Decode outside the lock so one large file cannot stall lookups
	// for other sessions.
	buf, err := c.decoder.Decode(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		// Another session decoded the same file concurrently. Keep
		// the cached copy and discard ours.
		entry.refs++
		c.lru.MoveToFront(entry.elem)
		return entry.buf, nil
	}

	entry := &cacheEntry{buf: buf, refs: 1}
	entry.elem = c.lru.PushFront(key)
	c.entries[key] = entry
	c.bytes += buf.Bytes()
	c.evictLocked()
	return buf, nil
}

// Release drops one reference to the buffer. Safe with nil.
func (c *Cache) Release(buf *Buffer) {
	if buf == nil {
		return
	}
	key := filepath.Clean(buf.Path)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || entry.buf != buf {
		// The entry was invalidated while this reference was live.
		return
	}
	if entry.refs > 0 {
		entry.refs--
	}
	c.evictLocked()
}

// Invalidate removes the entry for path if nothing references it.
func (c *Cache) Invalidate(path string) {
	key := filepath.Clean(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok && entry.refs == 0 {
		c.dropLocked(key, entry)
	}
}

// Bytes reports the current decoded payload size.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

func (c *Cache) evictLocked() {
	for c.bytes > c.budget {
		evicted := false
		for elem := c.lru.Back(); elem != nil; elem = elem.Prev() {
			key := elem.Value.(string)
			entry := c.entries[key]
			if entry.refs > 0 {
				continue
			}
			logger.Debug("evicting cached image", "path", key, "bytes", entry.buf.Bytes())
			c.dropLocked(key, entry)
			evicted = true
			break
		}
		if !evicted {
			// Everything over budget is still referenced.
			return
		}
	}
}

func (c *Cache) dropLocked(key string, entry *cacheEntry) {
	c.lru.Remove(entry.elem)
	delete(c.entries, key)
	c.bytes -= entry.buf.Bytes()
}

func fresh(buf *Buffer) bool {
	info, err := os.Stat(buf.Path)
	if err != nil {
		return false
	}
	return !info.ModTime().After(buf.ModTime)
}
