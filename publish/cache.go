/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package publish

import "sync"

// Cache remembers where source paths have been published.
type Cache interface {
	// Get retrieves the publication of a source path.
	Get(sourcePath string) (Published, bool)

	// Set records the publication of a source path.
	Set(sourcePath string, published Published)

	// Invalidate forgets a source path, so the next Publish materializes it again.
	Invalidate(sourcePath string)

	// GetOrLoad returns the cached publication or runs publish to create it.
	// Only one goroutine runs publish for a given source path; others wait.
	GetOrLoad(sourcePath string, publish func() (Published, error)) (Published, error)
}

type cacheEntry struct {
	published Published
	err       error
	once      sync.Once
}

// MemoryCache is a thread-safe in-memory Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[string]Published
	loading sync.Map // map[string]*cacheEntry for in-flight publications
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]Published),
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(sourcePath string) (Published, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	published, ok := c.cache[sourcePath]
	return published, ok
}

// Set implements Cache.
func (c *MemoryCache) Set(sourcePath string, published Published) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[sourcePath] = published
}

// Invalidate removes a cached entry and any in-flight state.
func (c *MemoryCache) Invalidate(sourcePath string) {
	c.mu.Lock()
	delete(c.cache, sourcePath)
	c.mu.Unlock()
	c.loading.Delete(sourcePath)
}

// GetOrLoad implements Cache.
func (c *MemoryCache) GetOrLoad(sourcePath string, publish func() (Published, error)) (Published, error) {
	c.mu.RLock()
	if published, ok := c.cache[sourcePath]; ok {
		c.mu.RUnlock()
		return published, nil
	}
	c.mu.RUnlock()

	actual, _ := c.loading.LoadOrStore(sourcePath, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.once.Do(func() {
		entry.published, entry.err = publish()
		if entry.err == nil {
			c.mu.Lock()
			c.cache[sourcePath] = entry.published
			c.mu.Unlock()
		}
	})

	// Entries stay in loading until Invalidate; deleting them here would
	// race with concurrent LoadOrStore calls.
	return entry.published, entry.err
}
