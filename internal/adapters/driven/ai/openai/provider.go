// Package openai provides a structured-output AI provider using the OpenAI API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/fetch"
)

// Ensure Provider implements the interface.
var _ driven.AIProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Provider generates JSON documents constrained by a strict JSON Schema
// response format.
type Provider struct {
	client  openai.Client
	baseURL string
	model   string
}

// New creates an OpenAI provider. Retries are left to the call coordinator.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Provider{
		client:  openai.NewClient(opts...),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Capabilities reports multi-field support; one strict schema covers every target.
func (p *Provider) Capabilities() driven.AICapabilities {
	return driven.AICapabilities{MultiField: true}
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.model
}

// Generate requests a completion whose content satisfies req.Schema.
func (p *Provider) Generate(ctx context.Context, req driven.GenerateRequest) (json.RawMessage, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instructions),
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName(req),
					Schema: strictSchema(req.Schema),
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", domain.ErrMalformedResponse)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: openai refused: %s", domain.ErrEnhancementSchemaInvalid, choice.Message.Refusal)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: openai returned empty content", domain.ErrMalformedResponse)
	}
	return json.RawMessage(content), nil
}

// mapError converts SDK API errors to status errors the coordinator can classify.
func (p *Provider) mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai: %w", err)
	}
	statusErr := &domain.StatusError{
		StatusCode: apiErr.StatusCode,
		URL:        p.baseURL + "/chat/completions",
		Message:    apiErr.Message,
	}
	if apiErr.Response != nil {
		statusErr.RetryAfter = fetch.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	return fmt.Errorf("%w: %w", domain.ErrEnhancementProvider, statusErr)
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

func schemaName(req driven.GenerateRequest) string {
	if req.SchemaName != "" {
		return req.SchemaName
	}
	if req.Task != "" {
		return req.Task
	}
	return "response"
}

// unsupportedKeywords are rejected by strict structured outputs. The caller
// still validates the response against the full schema.
var unsupportedKeywords = map[string]bool{
	"minLength":             true,
	"maxLength":             true,
	"pattern":               true,
	"format":                true,
	"minimum":               true,
	"maximum":               true,
	"exclusiveMinimum":      true,
	"exclusiveMaximum":      true,
	"multipleOf":            true,
	"minItems":              true,
	"maxItems":              true,
	"uniqueItems":           true,
	"minProperties":         true,
	"maxProperties":         true,
	"patternProperties":     true,
	"unevaluatedProperties": true,
	"propertyNames":         true,
}

// strictSchema returns a copy of schema without keywords strict mode rejects.
func strictSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if unsupportedKeywords[k] {
			continue
		}
		if k == "properties" {
			out[k] = strictProperties(v)
			continue
		}
		out[k] = strictValue(v)
	}
	return out
}

// strictProperties keeps property names even when one collides with a keyword.
func strictProperties(v any) any {
	props, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(props))
	for name, sub := range props {
		out[name] = strictValue(sub)
	}
	return out
}

func strictValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return strictSchema(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = strictValue(e)
		}
		return out
	default:
		return v
	}
}
