package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure ResponseCache implements the interface.
var _ driven.ResponseCache = (*ResponseCache)(nil)

// ResponseCache is an in-memory implementation of driven.ResponseCache.
type ResponseCache struct {
	mu        sync.RWMutex
	responses map[string]domain.CachedResponse
}

// NewResponseCache creates a new in-memory response cache.
func NewResponseCache() *ResponseCache {
	return &ResponseCache{
		responses: make(map[string]domain.CachedResponse),
	}
}

// Get returns a copy of the cached response for url, or nil when absent.
func (c *ResponseCache) Get(_ context.Context, url string) (*domain.CachedResponse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.responses[url]
	if !ok {
		return nil, nil
	}
	resp.Body = bytes.Clone(resp.Body)
	return &resp, nil
}

// Put stores or replaces the response for resp.URL.
func (c *ResponseCache) Put(_ context.Context, resp domain.CachedResponse) error {
	resp.Body = bytes.Clone(resp.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[resp.URL] = resp
	return nil
}

// Len returns the number of cached responses.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.responses)
}
