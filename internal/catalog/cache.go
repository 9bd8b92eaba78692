package catalog

import (
	"sync"
	"time"
)

// Source tags where a catalog snapshot came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceStatic Source = "static"
	SourceCache  Source = "cache"
)

type cacheEntry struct {
	products []Product
	source   Source
	storedAt time.Time
}

// Cache memoizes one whole-catalog snapshot for a freshness window.
// Expiry is checked on read; nothing sweeps in the background.
type Cache struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	entry  *cacheEntry
}

func NewCache(window time.Duration) *Cache {
	return &Cache{window: window, now: time.Now}
}

func (c *Cache) Window() time.Duration { return c.window }

// Read returns a copy of the snapshot and its source while it is fresh.
func (c *Cache) Read() ([]Product, Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil {
		return nil, "", false
	}
	if c.now().Sub(c.entry.storedAt) >= c.window {
		return nil, "", false
	}
	return cloneProducts(c.entry.products), c.entry.source, true
}

// Write replaces the snapshot unconditionally.
func (c *Cache) Write(products []Product, src Source) {
	e := &cacheEntry{
		products: cloneProducts(products),
		source:   src,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e.storedAt = c.now()
	c.entry = e
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}
