// Package cache provides a fixed-capacity in-process map with
// insertion-order eviction: when full, the oldest-inserted key is dropped,
// regardless of how recently it was read.
package cache

import "sync"

type Bounded[V any] struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]V
}

func NewBounded[V any](capacity int) *Bounded[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[V]{
		capacity: capacity,
		items:    make(map[string]V, capacity),
	}
}

func (c *Bounded[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Set inserts or replaces a value. Replacing keeps the key's original
// insertion slot; only a fresh insert can trigger eviction.
func (c *Bounded[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; exists {
		c.items[key] = value
		return
	}
	if len(c.items) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[key] = value
	c.order = append(c.order, key)
}

func (c *Bounded[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
