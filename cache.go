package inkwell

import (
	"context"
	"sync"
	"time"
)

const (
	sidebarCategories = 10
	sidebarTags       = 15
)

// TaxonomyCache is an in-memory cache with TTL of the most used categories
// and tags shown in the listing sidebar.
type TaxonomyCache struct {
	mu         sync.RWMutex
	categories []Category
	tags       []Tag
	fetched    time.Time
	loaded     bool
	ttl        time.Duration
	store      *Store
}

// NewTaxonomyCache creates a TaxonomyCache backed by the given Store.
func NewTaxonomyCache(s *Store, ttl time.Duration) *TaxonomyCache {
	return &TaxonomyCache{store: s, ttl: ttl}
}

func (c *TaxonomyCache) valid() bool {
	return c.loaded && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *TaxonomyCache) Invalidate() {
	c.mu.Lock()
	c.categories = nil
	c.tags = nil
	c.loaded = false
	c.mu.Unlock()
}

func (c *TaxonomyCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	cats, err := c.store.PopularCategories(ctx, sidebarCategories)
	if err != nil {
		return err
	}
	tags, err := c.store.PopularTags(ctx, sidebarTags)
	if err != nil {
		return err
	}
	c.categories = cats
	c.tags = tags
	c.fetched = time.Now()
	c.loaded = true
	return nil
}

// Sidebar returns the cached popular categories and tags after ensuring the
// cache is fresh. It tries a read lock first and only takes the write lock
// if a reload is needed.
func (c *TaxonomyCache) Sidebar(ctx context.Context) ([]Category, []Tag, error) {
	c.mu.RLock()
	if c.valid() {
		cats, tags := c.categories, c.tags
		c.mu.RUnlock()
		return cats, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.categories, c.tags, nil
}
