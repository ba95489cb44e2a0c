package cache

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LRUCache holds at most maxSize entries, each valid for ttl. Concurrent
// loads of the same key share one call to the loader.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	now     func() time.Time

	// generation moves on every Delete. A load that started under an older
	// generation may hold data from before the delete and is not stored.
	generation uint64
	loads      singleflight.Group
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key)
}

// lookup must be called with mu held.
func (c *LRUCache[T]) lookup(key string) (T, bool) {
	var zero T
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if c.expired(e, c.now()) {
		c.evict(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value)
}

// store must be called with mu held.
func (c *LRUCache[T]) store(key string, value T) {
	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.entries[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.evict(c.order.Back())
	}
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. hit reports whether the value came from the cache. Errors are
// returned to every waiting caller and never cached.
func (c *LRUCache[T]) GetOrLoad(key string, load func() (T, error)) (value T, hit bool, err error) {
	c.mu.Lock()
	if v, ok := c.lookup(key); ok {
		c.mu.Unlock()
		return v, true, nil
	}
	gen := c.generation
	c.mu.Unlock()

	// Callers arriving after a Delete get a flight of their own.
	flight := key + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := c.loads.Do(flight, func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.store(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Delete drops key and discards any load for it still in flight.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if el, ok := c.entries[key]; ok {
		c.evict(el)
	}
}

func (c *LRUCache[T]) expired(e *entry[T], now time.Time) bool {
	return !now.Before(e.expires)
}

func (c *LRUCache[T]) evict(el *list.Element) {
	delete(c.entries, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}

// CleanExpired drops every expired entry and returns how many it dropped.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*entry[T]), now) {
			c.evict(el)
			n++
		}
		el = prev
	}
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
