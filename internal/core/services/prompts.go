package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Task names sent with AI requests.
const (
	TaskEnhance  = "enhance"
	TaskClassify = "classify"
)

// defaultEnhancePrompt is the fallback when no PromptStore template exists.
const defaultEnhancePrompt = `You improve listings for a content digest.
Write only the requested fields, in the language of the source.
A title is a specific, informative headline of 30 to 100 characters with no quotes or clickbait.
An excerpt is one or two plain sentences of at most 200 characters summarising the item.
Never invent prices, dates or facts that are not implied by the context.`

// defaultClassifyPrompt is the fallback when no PromptStore template exists.
const defaultClassifyPrompt = `You assign exactly one category to an item in a content digest.
Choose from the allowed categories only.
Report your confidence between 0 and 1; use a low value when the item fits no category well.`

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// recordContext returns the known fields of r sent to the model.
func recordContext(r domain.EnhancedRecord) map[string]string {
	ctx := map[string]string{
		"url":    r.URL(),
		"source": r.Draft.Source,
	}
	if r.Title != "" {
		ctx["title"] = r.Title
	}
	if r.Excerpt != "" {
		ctx["excerpt"] = r.Excerpt
	}
	if r.Draft.SourceCategory != "" {
		ctx["source_category"] = r.Draft.SourceCategory
	}
	if !r.Draft.PublishedAt.IsZero() {
		ctx["published"] = r.Draft.PublishedAt.UTC().Format(domain.DateLayout)
	}
	return ctx
}

// renderPrompt lays out context as sorted "key: value" lines followed by the task line.
func renderPrompt(ctx map[string]string, task string) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, ctx[k])
	}
	b.WriteString("\n")
	b.WriteString(task)
	return b.String()
}

// enhancementSchema requires exactly the target fields as non-empty strings.
func enhancementSchema(targets []domain.Field) map[string]any {
	props := make(map[string]any, len(targets))
	required := make([]any, 0, len(targets))
	for _, t := range targets {
		props[string(t)] = map[string]any{
			"type":      "string",
			"minLength": 1,
		}
		required = append(required, string(t))
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// classificationSchema constrains the label to the taxonomy.
func classificationSchema(taxonomy domain.Taxonomy) map[string]any {
	names := taxonomy.Names()
	enum := make([]any, len(names))
	for i, n := range names {
		enum[i] = n
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category":   map[string]any{"type": "string", "enum": enum},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required":             []any{"category", "confidence"},
		"additionalProperties": false,
	}
}

func fieldNames(fields []domain.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
