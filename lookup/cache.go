package lookup

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Cache maps a normalized query to its lookup outcome. An empty value records
// that no source had anything, so the miss is not retried.
type Cache interface {
	Get(key string) (string, bool)
	Add(key, value string)
	Len() int
}

// NewCache returns an unbounded cache when size is zero or less, otherwise an
// LRU cache holding at most size queries.
func NewCache(size int) (Cache, error) {
	if size <= 0 {
		return &mapCache{m: make(map[string]string)}, nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &lruCache{c: c}, nil
}

type mapCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Add(key, value string) {
	c.mu.Lock()
	c.m[key] = value
	c.mu.Unlock()
}

func (c *mapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

type lruCache struct {
	c *lru.Cache
}

func (c *lruCache) Get(key string) (string, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c *lruCache) Add(key, value string) {
	c.c.Add(key, value)
}

func (c *lruCache) Len() int {
	return c.c.Len()
}
