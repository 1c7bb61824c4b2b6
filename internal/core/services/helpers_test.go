package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai/mock"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/fetch"
)

// --- Shared fixtures for service tests ---

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func newTestCoordinator() *fetch.Coordinator {
	return fetch.NewCoordinator(fetch.Config{
		RequestsPerSecond: -1,
		MaxAttempts:       1,
		Timeout:           5 * time.Second,
	})
}

func newRecord(title, url, excerpt string) domain.EnhancedRecord {
	return domain.NewEnhancedRecord(domain.DraftRecord{
		Title:       title,
		URL:         url,
		Excerpt:     excerpt,
		Source:      "test",
		RetrievedAt: testNow,
	}, 0)
}

func jsonResponder(v any) mock.Responder {
	return func(driven.GenerateRequest) (json.RawMessage, error) {
		return json.Marshal(v)
	}
}

func newTestEnhancer(provider driven.AIProvider, cache driven.EnhancementCache) *Enhancer {
	return NewEnhancer(provider, ai.NewSchemaValidator(), newTestCoordinator(), cache, nil, EnhancerConfig{})
}

func newTestClassifier(provider driven.AIProvider) *Classifier {
	return NewClassifier(provider, ai.NewSchemaValidator(), newTestCoordinator(), nil, ClassifierConfig{})
}

// mapCache is an in-memory EnhancementCache.
type mapCache struct {
	mu     sync.Mutex
	fields map[string]map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{fields: make(map[string]map[string]string)}
}

func (c *mapCache) Get(_ context.Context, key string) (map[string]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.fields[key]
	return f, ok, nil
}

func (c *mapCache) Put(_ context.Context, key string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields[key] = fields
	return nil
}

// stubPrompts is a PromptStore backed by a map.
type stubPrompts map[string]string

func (s stubPrompts) Load(name string) (string, error) {
	if p, ok := s[name]; ok {
		return p, nil
	}
	return "", domain.ErrInvalidConfig
}
