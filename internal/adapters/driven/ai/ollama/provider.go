// Package ollama provides a structured-output AI provider using a local
// Ollama server. The JSON Schema is passed as the chat "format" so the
// model's output is grammar-constrained.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.AIProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Config holds configuration for the Ollama provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// MultiField lets one call produce several fields. Small local models
	// follow single-field schemas more reliably, so it is off by default.
	MultiField bool

	// HTTPClient overrides the transport. Timeouts come from the call coordinator.
	HTTPClient *http.Client
}

// Provider generates structured output with Ollama.
type Provider struct {
	client     *http.Client
	baseURL    string
	model      string
	multiField bool
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format,omitempty"`
	Options  *options       `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// New creates an Ollama provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}

	return &Provider{
		client:     cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		multiField: cfg.MultiField,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ollama"
}

// Capabilities reports the configured multi-field support.
func (p *Provider) Capabilities() driven.AICapabilities {
	return driven.AICapabilities{MultiField: p.multiField}
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.model
}

// Generate runs a non-streaming chat constrained by req.Schema.
func (p *Provider) Generate(ctx context.Context, req driven.GenerateRequest) (json.RawMessage, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.Instructions},
			{Role: "user", Content: req.Prompt},
		},
		Stream:  false,
		Format:  req.Schema,
		Options: &options{NumPredict: req.MaxTokens, Temperature: req.Temperature},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.baseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", domain.ErrEnhancementProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		msg := string(body)
		if err != nil {
			msg = "failed to read response"
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEnhancementProvider, &domain.StatusError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Message:    strings.TrimSpace(msg),
		})
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrMalformedResponse, err)
	}
	if chatResp.Error != "" {
		return nil, fmt.Errorf("%w: ollama: %s", domain.ErrEnhancementProvider, chatResp.Error)
	}

	content := strings.TrimSpace(chatResp.Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: ollama returned empty content", domain.ErrMalformedResponse)
	}
	return json.RawMessage(content), nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
