// Package ai provides the AI provider factory and JSON Schema validation
// for structured AI output.
package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai/anthropic"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai/mock"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai/ollama"
	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai/openai"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
	ProviderNone      = "none"
)

// Settings selects and configures an AI provider.
type Settings struct {
	// Provider is one of the Provider* names. Empty means none.
	Provider string

	// Model overrides the provider's default model.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// APIKey authenticates hosted providers.
	APIKey string
}

// IsConfigured reports whether a provider is selected.
func (s Settings) IsConfigured() bool {
	p := strings.ToLower(strings.TrimSpace(s.Provider))
	return p != "" && p != ProviderNone
}

// RequiresKey reports whether the selected provider needs an API key.
func (s Settings) RequiresKey() bool {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// Providers lists the accepted provider names.
func Providers() []string {
	names := []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderMock, ProviderNone}
	sort.Strings(names)
	return names
}

// NewProvider creates the provider selected by settings.
// Returns nil without error when no provider is configured.
func NewProvider(settings Settings) (driven.AIProvider, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(settings.Provider)) {
	case ProviderOpenAI:
		p, err := openai.New(openai.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrAIUnavailable, err)
		}
		return p, nil

	case ProviderAnthropic:
		p, err := anthropic.New(anthropic.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrAIUnavailable, err)
		}
		return p, nil

	case ProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case ProviderMock:
		return mock.New(nil), nil

	default:
		return nil, fmt.Errorf("%w: unsupported AI provider: %s", domain.ErrAIUnavailable, settings.Provider)
	}
}
