package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai"
	artifactfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/artifact/file"
	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/similarity"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/contentpipe/internal/connectors"
	"github.com/custodia-labs/contentpipe/internal/connectors/mapping"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driving"
	"github.com/custodia-labs/contentpipe/internal/core/services"
	"github.com/custodia-labs/contentpipe/internal/fetch"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// pipelineFactory builds a pipeline from a loaded configuration.
// The returned close func releases caches and must be called once the run ends.
type pipelineFactory func(cfg *configfile.Config) (driving.Pipeline, func() error, error)

// newPipeline is replaced in tests.
var newPipeline pipelineFactory = buildPipeline

// buildPipeline wires every adapter into an orchestrator.
func buildPipeline(cfg *configfile.Config) (driving.Pipeline, func() error, error) {
	p := cfg.Pipeline

	responses, enhancements, closeCaches, err := openCaches(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	coord := fetch.NewCoordinator(fetch.Config{
		MaxConcurrent:     p.MaxConcurrent,
		RequestsPerSecond: p.RequestsPerSecond,
		Burst:             p.Burst,
		Timeout:           p.Timeout(),
		MaxAttempts:       p.MaxAttempts,
		BaseDelay:         p.Backoff(),
	})
	fetcher := fetch.NewHTTPFetcher(coord, responses, fetch.HTTPConfig{UserAgent: p.UserAgent})
	registry := connectors.NewDefaultRegistry(fetcher, mapping.Limits{
		MaxItems: p.MaxItemsPerSource,
		MaxAge:   p.MaxAge(),
	})

	provider := newProvider(cfg.AI)

	var prompts driven.PromptStore
	if cfg.Prompts != "" {
		store, err := configfile.NewPromptStore(cfg.Prompts)
		if err != nil {
			return nil, nil, errors.Join(err, closeCaches())
		}
		prompts = store
	}

	schemas := ai.NewSchemaValidator()
	enhancer := services.NewEnhancer(provider, schemas, coord, enhancements, prompts, services.EnhancerConfig{})
	classifier := services.NewClassifier(provider, schemas, coord, prompts, services.ClassifierConfig{
		Taxonomy:  cfg.Taxonomy(),
		Threshold: p.ConfidenceThreshold,
	})
	validator := services.NewQualityValidator(similarity.NewLevenshtein(), services.ValidatorConfig{
		Threshold:       p.QualityThreshold,
		TitleSimilarity: p.TitleSimilarity,
	})

	orch := services.NewOrchestrator(
		registry,
		coord,
		enhancer,
		classifier,
		validator,
		artifactfile.NewWriter(),
		services.OrchestratorConfig{NewRunID: uuid.NewString},
	)
	return orch, closeCaches, nil
}

// openCaches opens the sqlite caches when a path is configured, otherwise in-memory ones.
func openCaches(cfg configfile.CacheConfig) (driven.ResponseCache, driven.EnhancementCache, func() error, error) {
	if cfg.Path == "" {
		return memory.NewResponseCache(), memory.NewEnhancementCache(), func() error { return nil }, nil
	}
	store, err := sqlite.NewStore(cfg.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open cache %s: %w", cfg.Path, err)
	}
	logger.Debug("using cache database %s", store.Path())
	return store.ResponseCache(), store.EnhancementCache(), store.Close, nil
}

// newProvider returns the configured AI provider, or nil when AI is disabled
// or cannot be set up. A missing provider never fails the run.
func newProvider(cfg configfile.AIConfig) driven.AIProvider {
	if !cfg.IsEnabled() {
		return nil
	}
	settings := ai.Settings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		APIKey:   os.Getenv(cfg.APIKeyEnv),
	}
	if settings.RequiresKey() && settings.APIKey == "" {
		logger.Warn("%s is not set; continuing without AI", cfg.APIKeyEnv)
		return nil
	}
	provider, err := ai.NewProvider(settings)
	if err != nil {
		logger.Warn("AI provider unavailable: %v", err)
		return nil
	}
	return provider
}
