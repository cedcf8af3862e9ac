package store

import (
	"container/list"
	"sync"
	"time"

	"github.com/rfenaux/ctm/internal/models"
)

// agentCacheEntry pairs a cached agent with the mtime it was read at.
type agentCacheEntry struct {
	id    string
	agent *models.Agent
	mtime time.Time
}

// agentCache is a bounded, insertion-order LRU cache from agent id to
// (Agent, mtime), matching spec §4.1's cache contract: default capacity 20,
// evict in insertion order when full, invalidate on every save/delete. It is
// an optimization only — Load always falls back to re-reading when the
// cached mtime doesn't match the file's current mtime.
type agentCache struct {
	mu       sync.Mutex
	cap      int
	order    *list.List
	elements map[string]*list.Element
}

func newAgentCache(capacity int) *agentCache {
	if capacity <= 0 {
		capacity = 20
	}
	return &agentCache{
		cap:      capacity,
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

func (c *agentCache) get(id string) (*models.Agent, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.elements[id]
	if !ok {
		return nil, time.Time{}, false
	}
	e := elem.Value.(*agentCacheEntry)
	return e.agent, e.mtime, true
}

func (c *agentCache) put(id string, agent *models.Agent, mtime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.elements[id]; ok {
		elem.Value.(*agentCacheEntry).agent = agent
		elem.Value.(*agentCacheEntry).mtime = mtime
		return
	}

	if c.order.Len() >= c.cap {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.elements, oldest.Value.(*agentCacheEntry).id)
		}
	}

	elem := c.order.PushBack(&agentCacheEntry{id: id, agent: agent, mtime: mtime})
	c.elements[id] = elem
}

func (c *agentCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.elements[id]; ok {
		c.order.Remove(elem)
		delete(c.elements, id)
	}
}
