package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// DefaultConfidenceThreshold is the minimum confidence for a label to stick.
const DefaultConfidenceThreshold = 0.5

// ClassifyOutcome reports how a record received its category.
type ClassifyOutcome int

// Classification outcomes.
const (
	// ClassifiedBySource means the source declared a category in the taxonomy.
	ClassifiedBySource ClassifyOutcome = iota

	// ClassifiedByAI means the provider's label met the threshold.
	ClassifiedByAI

	// ClassifiedLowConfidence means the provider answered below the threshold.
	ClassifiedLowConfidence

	// ClassifyUnavailable means no provider could be asked.
	ClassifyUnavailable

	// ClassifyFailed means the provider call or its output failed.
	ClassifyFailed
)

// ClassifierConfig configures classification.
type ClassifierConfig struct {
	// Taxonomy is the closed label set (default: the standard categories).
	Taxonomy domain.Taxonomy

	// Threshold is the minimum confidence (default: 0.5).
	Threshold float64
}

// Classifier assigns a taxonomy category and confidence to records.
type Classifier struct {
	provider  driven.AIProvider
	validator driven.SchemaValidator
	coord     driven.CallCoordinator
	prompts   driven.PromptStore
	taxonomy  domain.Taxonomy
	threshold float64
	schema    map[string]any
}

// NewClassifier creates a classifier. provider and prompts may be nil.
func NewClassifier(
	provider driven.AIProvider,
	validator driven.SchemaValidator,
	coord driven.CallCoordinator,
	prompts driven.PromptStore,
	cfg ClassifierConfig,
) *Classifier {
	if cfg.Taxonomy.Len() == 0 {
		cfg.Taxonomy = domain.DefaultTaxonomy()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfidenceThreshold
	}
	return &Classifier{
		provider:  provider,
		validator: validator,
		coord:     coord,
		prompts:   prompts,
		taxonomy:  cfg.Taxonomy,
		threshold: cfg.Threshold,
		schema:    classificationSchema(cfg.Taxonomy),
	}
}

// Taxonomy returns the label set in use.
func (c *Classifier) Taxonomy() domain.Taxonomy {
	return c.taxonomy
}

// Available reports whether classification can call a provider.
func (c *Classifier) Available() bool {
	return c.provider != nil && c.validator != nil && c.coord != nil
}

// ResolveCategory maps a predicted label and confidence to the emitted
// category. Labels outside the taxonomy, and any label below threshold,
// resolve to unclassified.
func ResolveCategory(taxonomy domain.Taxonomy, label string, confidence, threshold float64) domain.Category {
	if confidence < threshold {
		return domain.CategoryUnclassified
	}
	c, ok := taxonomy.Lookup(label)
	if !ok {
		return domain.CategoryUnclassified
	}
	return c
}

// Classify sets r's category and confidence. Records already classified are
// returned unchanged. useAI false restricts classification to source categories.
func (c *Classifier) Classify(ctx context.Context, r domain.EnhancedRecord, useAI bool) (domain.EnhancedRecord, ClassifyOutcome) {
	if r.IsClassified() {
		if r.Category == domain.CategoryUnclassified {
			return r, ClassifiedLowConfidence
		}
		return r, ClassifiedBySource
	}

	if cat, ok := c.taxonomy.Lookup(r.Draft.SourceCategory); ok {
		r.Category = cat
		r.Confidence = domain.Float(1)
		return r, ClassifiedBySource
	}

	if !useAI || !c.Available() || ctx.Err() != nil {
		return unclassified(r, 0), ClassifyUnavailable
	}

	label, confidence, err := c.predict(ctx, r)
	if err != nil {
		logger.Debug("classification of %s failed: %v", r.URL(), err)
		return unclassified(r, 0), ClassifyFailed
	}

	r.Category = ResolveCategory(c.taxonomy, label, confidence, c.threshold)
	r.Confidence = domain.Float(confidence)
	if r.Category == domain.CategoryUnclassified {
		logger.Debug("%s: %q at %.2f resolved to unclassified: %v", r.URL(), label, confidence, domain.ErrLowConfidence)
		return r, ClassifiedLowConfidence
	}
	return r, ClassifiedByAI
}

type prediction struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (c *Classifier) predict(ctx context.Context, r domain.EnhancedRecord) (string, float64, error) {
	known := map[string]string{"url": r.URL()}
	if r.Title != "" {
		known["title"] = r.Title
	}
	if r.Excerpt != "" {
		known["excerpt"] = r.Excerpt
	}
	if r.Draft.SourceCategory != "" {
		known["source_category"] = r.Draft.SourceCategory
	}

	req := driven.GenerateRequest{
		Task:         TaskClassify,
		Instructions: loadPrompt(c.prompts, driven.PromptClassifySystem, defaultClassifyPrompt),
		Prompt:       renderPrompt(known, "Allowed categories: "+strings.Join(c.taxonomy.Names(), "; ")),
		Context:      known,
		Targets:      []string{"category", "confidence"},
		SchemaName:   "classification",
		Schema:       c.schema,
		MaxTokens:    60,
	}

	var raw json.RawMessage
	err := c.coord.Do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.provider.Generate(ctx, req)
		return err
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", domain.ErrEnhancementProvider, err)
	}
	if err := c.validator.Validate(req.Schema, raw); err != nil {
		return "", 0, err
	}

	var p prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", 0, fmt.Errorf("%w: %w", domain.ErrEnhancementSchemaInvalid, err)
	}
	return p.Category, clamp01(p.Confidence), nil
}

func unclassified(r domain.EnhancedRecord, confidence float64) domain.EnhancedRecord {
	r.Category = domain.CategoryUnclassified
	r.Confidence = domain.Float(confidence)
	return r
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
