package services

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/core/domain"
)

// Default cache sizing; overridable via Config
const (
	DefaultCacheCapacity = 50
	DefaultCacheTTL      = 5 * time.Minute
)

// cachedTags is one cache entry. Entries are replaced wholesale on refresh,
// never partially updated.
type cachedTags struct {
	clientID  uuid.UUID
	tags      *domain.ClientTagSet
	expiresAt time.Time
}

// ClientTagCache is an LRU cache with a hard capacity bound and a TTL per
// entry, sitting in front of client tag extraction. Owned by a single
// engine instance (injected via the constructor) so independent engines,
// e.g. one per test, never share state.
type ClientTagCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	entries  map[uuid.UUID]*list.Element
}

// NewClientTagCache creates a cache with the given bounds. Non-positive
// values fall back to the defaults.
func NewClientTagCache(capacity int, ttl time.Duration) *ClientTagCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ClientTagCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[uuid.UUID]*list.Element),
	}
}

// Get returns the cached tag set for a client, touching recency order.
// Expired entries are dropped and reported as misses.
func (c *ClientTagCache) Get(clientID uuid.UUID) (*domain.ClientTagSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[clientID]
	if !ok {
		tagCacheMisses.Inc()
		return nil, false
	}

	entry := elem.Value.(*cachedTags)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, clientID)
		tagCacheMisses.Inc()
		return nil, false
	}

	c.order.MoveToFront(elem)
	tagCacheHits.Inc()
	return entry.tags, true
}

// Put stores a freshly extracted tag set, evicting the least-recently-used
// entry when over capacity
func (c *ClientTagCache) Put(clientID uuid.UUID, tags *domain.ClientTagSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, ok := c.entries[clientID]; ok {
		elem.Value = &cachedTags{clientID: clientID, tags: tags, expiresAt: expiresAt}
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cachedTags{clientID: clientID, tags: tags, expiresAt: expiresAt})
	c.entries[clientID] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*cachedTags)
		c.order.Remove(oldest)
		delete(c.entries, evicted.clientID)
		tagCacheEvictions.Inc()
	}
}

// Invalidate removes a single client's entry. Safe to call for ids that are
// not cached or already expired.
func (c *ClientTagCache) Invalidate(clientID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[clientID]; ok {
		c.order.Remove(elem)
		delete(c.entries, clientID)
	}
}

// Clear drops everything
func (c *ClientTagCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[uuid.UUID]*list.Element)
}

// Len returns the number of cached entries, including any not yet swept
// expired ones
func (c *ClientTagCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
