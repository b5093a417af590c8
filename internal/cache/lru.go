package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// LRUCache is a size-bounded cache whose entries also expire after a TTL.
// Keys are conventionally "<userID>:<rest>" so DeletePrefix can drop one
// user's entries.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recently used
	now      func() time.Time
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		index:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns a live value and marks it most recently used. An expired
// entry is dropped on the way.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if c.now().After(e.expires) {
		c.evict(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key and restarts its TTL, evicting the least
// recently used entry when the cache is full.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.evict(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.evict(el)
	}
}

// DeletePrefix drops every key starting with prefix and reports how many
// went.
func (c *LRUCache[T]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictWhere(func(e *entry[T]) bool { return strings.HasPrefix(e.key, prefix) })
}

// CleanExpired drops expired entries and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	return c.evictWhere(func(e *entry[T]) bool { return now.After(e.expires) })
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictWhere must be called with mu held.
func (c *LRUCache[T]) evictWhere(match func(*entry[T]) bool) int {
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if match(el.Value.(*entry[T])) {
			c.evict(el)
			n++
		}
		el = next
	}
	return n
}

func (c *LRUCache[T]) evict(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
