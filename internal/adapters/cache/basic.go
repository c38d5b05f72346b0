package cache

import (
	"sync"
	"time"
)

type basicCache[T any] struct {
	cacheName string
	cache     map[string]hitResult[T]
	cacheLock sync.Mutex
}

func (c *basicCache[T]) name() string {
	return c.cacheName
}

func (c *basicCache[T]) getOrClaim(key string) hitResult[T] {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()

	if existing, ok := c.cache[key]; ok {
		return existing
	}

	c.cache[key] = hitResult[T]{valid: false}
	return hitResult[T]{valid: false, claimed: true}
}

func (c *basicCache[T]) set(key string, data T) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()

	c.cache[key] = hitResult[T]{data: data, valid: true}
}

func (c *basicCache[T]) delete(key string) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()

	delete(c.cache, key)
}

func (c *basicCache[T]) wait() {
	time.Sleep(10 * time.Millisecond)
}

// NewBasicCache never expires entries. Meant for tests.
func NewBasicCache[T any](name string) Cache[T] {
	return &basicCache[T]{
		cacheName: name,
		cache:     make(map[string]hitResult[T]),
	}
}
