package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	key     string
	value   interface{}
	expires time.Time
}

// MemoryCache is an in-memory LRU cache with per-entry TTL. A background
// sweeper evicts expired entries so long-idle keys do not pin memory.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	stopCh  chan struct{}
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}

	c := &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stopCh:  make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get retrieves a value, promoting it to most recently used.
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, ErrNotFound
	}

	item := el.Value.(*memoryItem)
	if time.Now().After(item.expires) {
		c.removeLocked(key)
		return nil, ErrNotFound
	}

	c.order.MoveToFront(el)
	return item.value, nil
}

// Set stores a value, evicting the least recently used entry when full.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Now().Add(ttl)

	if el, ok := c.items[key]; ok {
		item := el.Value.(*memoryItem)
		item.value = value
		item.expires = expires
		c.order.MoveToFront(el)
		return nil
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, value: value, expires: expires})

	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*memoryItem).key)
		}
	}
	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	return nil
}

// Close stops the background sweeper.
func (c *MemoryCache) Close() error {
	close(c.stopCh)
	return nil
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) removeLocked(key string) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, el := range c.items {
				if now.After(el.Value.(*memoryItem).expires) {
					c.removeLocked(key)
				}
			}
			c.mu.Unlock()
		}
	}
}
