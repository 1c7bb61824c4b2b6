// Package anthropic provides a structured-output AI provider using the
// Anthropic Messages API. Structured output is obtained by forcing a single
// tool call whose input schema is the requested JSON Schema.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
	"github.com/custodia-labs/contentpipe/internal/fetch"
)

// Ensure Provider implements the interface.
var _ driven.AIProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-haiku-latest).
	Model string

	// HTTPClient overrides the transport. Timeouts come from the call coordinator.
	HTTPClient *http.Client
}

// Provider generates structured output through tool use.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	Tools       []tool            `json:"tools"`
	ToolChoice  toolChoice        `json:"tool_choice"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates an Anthropic provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
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
		client:  cfg.HTTPClient,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Capabilities reports multi-field support.
func (p *Provider) Capabilities() driven.AICapabilities {
	return driven.AICapabilities{MultiField: true}
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.model
}

// Generate forces a tool call and returns the tool input as the result document.
func (p *Provider) Generate(ctx context.Context, req driven.GenerateRequest) (json.RawMessage, error) {
	name := req.SchemaName
	if name == "" {
		name = "respond"
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       p.model,
		Messages:    []messagesMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		System:      req.Instructions,
		Temperature: req.Temperature,
		Tools: []tool{{
			Name:        name,
			Description: "Record the " + req.Task + " result.",
			InputSchema: req.Schema,
		}},
		ToolChoice: toolChoice{Type: "tool", Name: name},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.baseURL + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", domain.ErrEnhancementProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrEnhancementProvider, err)
	}

	var msgResp messagesResponse
	decodeErr := json.Unmarshal(body, &msgResp)

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if decodeErr == nil && msgResp.Error != nil {
			msg = msgResp.Error.Message
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEnhancementProvider, &domain.StatusError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Message:    msg,
			RetryAfter: fetch.ParseRetryAfter(resp.Header.Get("Retry-After")),
		})
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrMalformedResponse, decodeErr)
	}

	for _, block := range msgResp.Content {
		if block.Type == "tool_use" && block.Name == name && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("%w: anthropic returned no %s tool call (stop reason %q)",
		domain.ErrMalformedResponse, name, msgResp.StopReason)
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
