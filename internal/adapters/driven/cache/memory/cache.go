// Package memory provides an in-process RetrievalCache with a fixed TTL.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.RetrievalCache = (*Cache)(nil)

// DefaultTTL is how long an entry stays valid.
const DefaultTTL = time.Hour

type entry struct {
	chunks   []domain.Chunk
	storedAt time.Time
}

// Cache is a map-backed RetrievalCache. Safe for concurrent use.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached chunks. Expired entries are evicted.
func (c *Cache) Get(_ context.Context, key string) ([]domain.Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return slices.Clone(e.chunks), true
}

// Set stores a copy of chunks under key.
func (c *Cache) Set(_ context.Context, key string, chunks []domain.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{chunks: slices.Clone(chunks), storedAt: c.now()}
	return nil
}

// Clear drops every entry.
func (c *Cache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
