package driven

import (
	"context"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// ResponseCache stores source responses for conditional requests.
type ResponseCache interface {
	// Get returns the cached response for url, or nil when absent.
	Get(ctx context.Context, url string) (*domain.CachedResponse, error)

	// Put stores or replaces the response for resp.URL.
	Put(ctx context.Context, resp domain.CachedResponse) error
}

// EnhancementCache stores AI-authored field values keyed by fingerprint and targets.
type EnhancementCache interface {
	// Get returns the cached fields for key and whether they were found.
	Get(ctx context.Context, key string) (map[string]string, bool, error)

	// Put stores the fields for key.
	Put(ctx context.Context, key string, fields map[string]string) error
}
