package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/logger"
)

// Enhancement heuristics defaults.
const (
	DefaultMinTitleRunes   = 30
	DefaultMinExcerptRunes = 40
	DefaultMaxTitleRunes   = 100
	DefaultMaxExcerptRunes = 200
)

// EnhanceOutcome reports what enhancement did to one record.
type EnhanceOutcome int

// Enhancement outcomes.
const (
	// EnhanceSkipped means no field was weak, AI was unavailable, or the run was cancelled.
	EnhanceSkipped EnhanceOutcome = iota

	// EnhanceApplied means at least one field was AI-authored.
	EnhanceApplied

	// EnhanceFailed means the provider failed or its output was rejected.
	// The record passes through unmodified.
	EnhanceFailed
)

// EnhancerConfig holds the completeness heuristic.
type EnhancerConfig struct {
	// MinTitleRunes marks shorter titles as weak (default: 30).
	MinTitleRunes int

	// MinExcerptRunes marks shorter excerpts as weak (default: 40).
	MinExcerptRunes int

	// MaxTitleRunes caps AI-authored titles (default: 100).
	MaxTitleRunes int

	// MaxExcerptRunes caps AI-authored excerpts (default: 200).
	MaxExcerptRunes int
}

func (c EnhancerConfig) withDefaults() EnhancerConfig {
	if c.MinTitleRunes <= 0 {
		c.MinTitleRunes = DefaultMinTitleRunes
	}
	if c.MinExcerptRunes <= 0 {
		c.MinExcerptRunes = DefaultMinExcerptRunes
	}
	if c.MaxTitleRunes <= 0 {
		c.MaxTitleRunes = DefaultMaxTitleRunes
	}
	if c.MaxExcerptRunes <= 0 {
		c.MaxExcerptRunes = DefaultMaxExcerptRunes
	}
	return c
}

// Enhancer fills missing or weak fields with AI-authored values.
type Enhancer struct {
	provider  driven.AIProvider
	validator driven.SchemaValidator
	coord     driven.CallCoordinator
	cache     driven.EnhancementCache
	prompts   driven.PromptStore
	cfg       EnhancerConfig
}

// NewEnhancer creates an enhancer. provider, cache and prompts may be nil;
// without a provider every record passes through unchanged.
func NewEnhancer(
	provider driven.AIProvider,
	validator driven.SchemaValidator,
	coord driven.CallCoordinator,
	cache driven.EnhancementCache,
	prompts driven.PromptStore,
	cfg EnhancerConfig,
) *Enhancer {
	return &Enhancer{
		provider:  provider,
		validator: validator,
		coord:     coord,
		cache:     cache,
		prompts:   prompts,
		cfg:       cfg.withDefaults(),
	}
}

// Available reports whether enhancement can call a provider.
func (e *Enhancer) Available() bool {
	return e.provider != nil && e.validator != nil && e.coord != nil
}

// Targets returns the weak fields of r. Fields already AI-authored are never
// targeted again, so enhancing an enhanced record is a no-op.
func (e *Enhancer) Targets(r domain.EnhancedRecord) []domain.Field {
	var targets []domain.Field
	if !r.Provenance.Has(domain.FieldTitle) && runeLen(r.Title) < e.cfg.MinTitleRunes {
		targets = append(targets, domain.FieldTitle)
	}
	if !r.Provenance.Has(domain.FieldExcerpt) && runeLen(r.Excerpt) < e.cfg.MinExcerptRunes {
		targets = append(targets, domain.FieldExcerpt)
	}
	return targets
}

// Enhance returns r with weak fields filled. Provider and schema failures
// leave the record unmodified.
func (e *Enhancer) Enhance(ctx context.Context, r domain.EnhancedRecord) (domain.EnhancedRecord, EnhanceOutcome) {
	targets := e.Targets(r)
	if len(targets) == 0 || !e.Available() || ctx.Err() != nil {
		return r, EnhanceSkipped
	}

	key := cacheKey(r.Fingerprint, targets)
	if fields, ok := e.cached(ctx, key); ok {
		return e.apply(r, targets, fields)
	}

	var batches [][]domain.Field
	if e.provider.Capabilities().MultiField {
		batches = [][]domain.Field{targets}
	} else {
		for _, t := range targets {
			batches = append(batches, []domain.Field{t})
		}
	}

	fields := make(map[string]string, len(targets))
	failed := false
	for _, batch := range batches {
		got, err := e.generate(ctx, r, batch)
		if err != nil {
			failed = true
			logger.Debug("enhancement of %s (%s) failed: %v", r.URL(), strings.Join(fieldNames(batch), ","), err)
			continue
		}
		for k, v := range got {
			fields[k] = v
		}
	}

	if !failed && e.cache != nil {
		if err := e.cache.Put(ctx, key, fields); err != nil {
			logger.Warn("enhancement cache write failed: %v", err)
		}
	}

	out, outcome := e.apply(r, targets, fields)
	if outcome == EnhanceSkipped && failed {
		return r, EnhanceFailed
	}
	return out, outcome
}

func (e *Enhancer) cached(ctx context.Context, key string) (map[string]string, bool) {
	if e.cache == nil {
		return nil, false
	}
	fields, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("enhancement cache read failed: %v", err)
		return nil, false
	}
	return fields, ok
}

// generate performs one schema-constrained call for targets.
func (e *Enhancer) generate(ctx context.Context, r domain.EnhancedRecord, targets []domain.Field) (map[string]string, error) {
	names := fieldNames(targets)
	known := recordContext(r)
	req := driven.GenerateRequest{
		Task:         TaskEnhance,
		Instructions: loadPrompt(e.prompts, driven.PromptEnhanceSystem, defaultEnhancePrompt),
		Prompt:       renderPrompt(known, "Write: "+strings.Join(names, ", ")),
		Context:      known,
		Targets:      names,
		SchemaName:   "enhancement",
		Schema:       enhancementSchema(targets),
		MaxTokens:    300,
		Temperature:  0.3,
	}

	var raw json.RawMessage
	err := e.coord.Do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = e.provider.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEnhancementProvider, err)
	}

	if err := e.validator.Validate(req.Schema, raw); err != nil {
		return nil, err
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEnhancementSchemaInvalid, err)
	}
	return fields, nil
}

// apply writes cleaned values for targets. A field enters provenance only
// when its new value is non-empty and differs from the draft.
func (e *Enhancer) apply(r domain.EnhancedRecord, targets []domain.Field, fields map[string]string) (domain.EnhancedRecord, EnhanceOutcome) {
	applied := false
	for _, t := range targets {
		limit := e.cfg.MaxExcerptRunes
		if t == domain.FieldTitle {
			limit = e.cfg.MaxTitleRunes
		}
		v := cleanGenerated(fields[string(t)], limit)
		if v == "" || v == r.DraftValue(t) {
			continue
		}
		switch t {
		case domain.FieldTitle:
			r.Title = v
		case domain.FieldExcerpt:
			r.Excerpt = v
		}
		r.Provenance = r.Provenance.With(t)
		applied = true
	}
	if !applied {
		return r, EnhanceSkipped
	}
	return r, EnhanceApplied
}

// cleanGenerated trims quotes and whitespace and caps the length at a word boundary.
func cleanGenerated(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'“”‘’ ")
	if runeLen(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}

func cacheKey(fingerprint string, targets []domain.Field) string {
	return fingerprint + ":" + strings.Join(fieldNames(targets), ",")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
