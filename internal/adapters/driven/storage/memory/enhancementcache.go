package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure EnhancementCache implements the interface.
var _ driven.EnhancementCache = (*EnhancementCache)(nil)

// EnhancementCache is an in-memory implementation of driven.EnhancementCache.
type EnhancementCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewEnhancementCache creates a new in-memory enhancement cache.
func NewEnhancementCache() *EnhancementCache {
	return &EnhancementCache{
		entries: make(map[string]map[string]string),
	}
}

// Get returns a copy of the cached fields for key.
func (c *EnhancementCache) Get(_ context.Context, key string) (map[string]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fields, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return maps.Clone(fields), true, nil
}

// Put stores a copy of fields for key.
func (c *EnhancementCache) Put(_ context.Context, key string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = maps.Clone(fields)
	return nil
}
