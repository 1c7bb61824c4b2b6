package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

var classifyReq = driven.GenerateRequest{
	Task:         "classify",
	Instructions: "Pick one category.",
	Prompt:       "title: Rates rise",
	SchemaName:   "classification",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category":   map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
		},
	},
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)
	return p
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestProvider_Generate(t *testing.T) {
	var got messagesRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"},
			{"type":"tool_use","name":"classification","input":{"category":"Finance","confidence":0.82}}],
			"stop_reason":"tool_use"}`))
	})

	raw, err := p.Generate(context.Background(), classifyReq)

	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"Finance","confidence":0.82}`, string(raw))
	assert.Equal(t, "Pick one category.", got.System)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, toolChoice{Type: "tool", Name: "classification"}, got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "object", got.Tools[0].InputSchema["type"])
	assert.Equal(t, "anthropic", p.Name())
}

func TestProvider_GenerateOverloaded(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := p.Generate(context.Background(), classifyReq)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEnhancementProvider)
	assert.True(t, domain.IsTransientStatus(err))
	assert.Contains(t, err.Error(), "Overloaded")
}

func TestProvider_GenerateNoToolCall(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"I cannot"}],"stop_reason":"end_turn"}`))
	})

	_, err := p.Generate(context.Background(), classifyReq)

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}
