package sourcing

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 128
	DefaultCacheTTL  = 5 * time.Minute
)

// Cache keeps recent aggregated results keyed by the normalized request.
// It is safe for concurrent use.
type Cache struct {
	entries *expirable.LRU[string, AggregatedResult]
}

// NewCache returns a cache holding at most size results for ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{entries: expirable.NewLRU[string, AggregatedResult](size, nil, ttl)}
}

// Get returns a copy of the cached result for req.
func (c *Cache) Get(req SearchRequest) (AggregatedResult, bool) {
	res, ok := c.entries.Get(req.Key())
	if !ok {
		return AggregatedResult{}, false
	}
	return res.clone(), true
}

// Add stores a copy of res for req.
func (c *Cache) Add(req SearchRequest, res AggregatedResult) {
	c.entries.Add(req.Key(), res.clone())
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}
