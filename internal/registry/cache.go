// ABOUTME: Process-wide cache holding the lazily built AgentRegistry.
// ABOUTME: Refresh swaps in a full rebuild; readers always see a complete index.

package registry

import "sync"

// Cache memoizes one built AgentRegistry and serves the same instance to
// every caller until Refresh. The registry itself is immutable, so only the
// cache slot needs synchronization: readers take the read lock, Refresh
// swaps the slot wholesale under the write lock.
type Cache struct {
	loader *Loader

	mu       sync.RWMutex
	registry *AgentRegistry
}

// NewCache creates a cache around the given loader. The registry is not
// built until the first Registry call.
func NewCache(loader *Loader) *Cache {
	return &Cache{loader: loader}
}

// Registry returns the cached registry, building it on first access.
func (c *Cache) Registry() *AgentRegistry {
	c.mu.RLock()
	reg := c.registry
	c.mu.RUnlock()
	if reg != nil {
		return reg
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry == nil {
		c.registry = c.loader.Load()
	}
	return c.registry
}

// Refresh discards the cached registry and eagerly rebuilds it, returning
// the new instance. There is no per-agent invalidation; the rebuild is
// always complete.
func (c *Cache) Refresh() *AgentRegistry {
	reg := c.loader.Load()

	c.mu.Lock()
	c.registry = reg
	c.mu.Unlock()

	return reg
}
