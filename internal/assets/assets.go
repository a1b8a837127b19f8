// Package assets handles template mesh loading and caching.
package assets

import (
	"sync"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/instance"
)

// Manager loads template meshes from disk, reading each file once.
type Manager struct {
	cache *Cache
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// Load returns the template at objPath with the materials of mtlPath.
// An empty mtlPath loads the geometry only.
func (m *Manager) Load(objPath, mtlPath string) (*instance.Template, error) {
	key := objPath + "\x00" + mtlPath

	// Check cache first
	if tpl, ok := m.cache.Get(key); ok {
		return tpl, nil
	}

	tpl, err := instance.LoadTemplate(objPath, mtlPath)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, tpl)
	return tpl, nil
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close drops all cached templates.
func (m *Manager) Close() {
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded templates.
type Cache struct {
	data map[string]*instance.Template
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*instance.Template),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*instance.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tpl, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return tpl, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, tpl *instance.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = tpl
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*instance.Template)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
