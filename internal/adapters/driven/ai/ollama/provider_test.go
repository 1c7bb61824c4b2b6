package ollama

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

var titleReq = driven.GenerateRequest{
	Task:         "enhance",
	Instructions: "Rewrite the title.",
	Prompt:       "title: hi",
	Targets:      []string{"title"},
	Schema:       map[string]any{"type": "object", "properties": map[string]any{"title": map[string]any{"type": "string"}}},
	MaxTokens:    80,
	Temperature:  0.2,
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})

	assert.Equal(t, DefaultModel, p.Model())
	assert.Equal(t, DefaultBaseURL, p.baseURL)
	assert.False(t, p.Capabilities().MultiField)
	assert.True(t, New(Config{MultiField: true}).Capabilities().MultiField)
}

func TestProvider_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":" {\"title\":\"Hello there, readers\"} "},"done":true}`))
	}))
	defer srv.Close()

	raw, err := New(Config{BaseURL: srv.URL + "/", Model: "qwen2.5"}).Generate(context.Background(), titleReq)

	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Hello there, readers"}`, string(raw))
	assert.Equal(t, "qwen2.5", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "object", got.Format["type"])
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, 80, got.Options.NumPredict)
}

func TestProvider_GenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), titleReq)

	assert.ErrorIs(t, err, domain.ErrEnhancementProvider)
	assert.True(t, domain.IsTransientStatus(err))
}

func TestProvider_GenerateUnknownModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model 'x' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), titleReq)

	assert.True(t, domain.IsClientStatus(err))
}
