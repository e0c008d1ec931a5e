package cache

import (
	"strings"
	"sync"
	"time"

	"discotheque/pkg/models"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expiration)
}

// MemoryCache implements a simple in-memory cache
type MemoryCache struct {
	items map[string]*CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a new memory cache with a background cleanup loop.
// Call Close to stop it.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*CacheEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired() {
		return nil, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// DeletePrefix removes every key starting with prefix
func (c *MemoryCache) DeletePrefix(prefix string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheEntry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Close stops the cleanup loop
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute * 5)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			for key, entry := range c.items {
				if entry.IsExpired() {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// LibraryCache caches directory listings and rendered covers, both keyed
// by path relative to the library root.
type LibraryCache struct {
	*MemoryCache
}

// NewLibraryCache creates a new library cache
func NewLibraryCache(ttl time.Duration) *LibraryCache {
	return &LibraryCache{
		MemoryCache: NewMemoryCache(ttl),
	}
}

func listingKey(relPath string) string { return "listing:" + relPath }
func coverKey(relPath string) string   { return "cover:" + relPath }

// SetListing caches a directory listing
func (lc *LibraryCache) SetListing(relPath string, listing *models.Listing) {
	lc.Set(listingKey(relPath), listing)
}

// GetListing retrieves a cached listing
func (lc *LibraryCache) GetListing(relPath string) (*models.Listing, bool) {
	value, exists := lc.Get(listingKey(relPath))
	if !exists {
		return nil, false
	}
	listing, ok := value.(*models.Listing)
	return listing, ok
}

// SetCover caches an encoded cover image
func (lc *LibraryCache) SetCover(relPath string, jpeg []byte) {
	lc.Set(coverKey(relPath), jpeg)
}

// GetCover retrieves a cached cover image
func (lc *LibraryCache) GetCover(relPath string) ([]byte, bool) {
	value, exists := lc.Get(coverKey(relPath))
	if !exists {
		return nil, false
	}
	data, ok := value.([]byte)
	return data, ok
}

// Invalidate drops the cover and listing of relPath and of everything below
// it, then the listing of every ancestor, since child counts change too.
func (lc *LibraryCache) Invalidate(relPath string) {
	lc.Delete(coverKey(relPath))
	lc.Delete(listingKey(relPath))
	if relPath == "" {
		lc.Clear()
		return
	}
	lc.DeletePrefix(coverKey(relPath + "/"))
	lc.DeletePrefix(listingKey(relPath + "/"))
	for dir := relPath; dir != ""; {
		i := strings.LastIndex(dir, "/")
		if i < 0 {
			dir = ""
		} else {
			dir = dir[:i]
		}
		lc.Delete(listingKey(dir))
	}
}
