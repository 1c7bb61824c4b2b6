package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantNil  bool
		wantErr  bool
		wantName string
	}{
		{name: "empty settings returns nil", settings: Settings{}, wantNil: true},
		{name: "none returns nil", settings: Settings{Provider: "none"}, wantNil: true},
		{name: "openai", settings: Settings{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "openai without key", settings: Settings{Provider: "openai"}, wantErr: true},
		{name: "anthropic", settings: Settings{Provider: "Anthropic", APIKey: "k"}, wantName: "anthropic"},
		{name: "anthropic without key", settings: Settings{Provider: "anthropic"}, wantErr: true},
		{name: "ollama needs no key", settings: Settings{Provider: "ollama"}, wantName: "ollama"},
		{name: "mock", settings: Settings{Provider: "mock"}, wantName: "mock"},
		{name: "unknown provider", settings: Settings{Provider: "watson"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrAIUnavailable)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NoError(t, p.Close())
		})
	}
}

func TestSettings(t *testing.T) {
	assert.True(t, Settings{Provider: "openai"}.RequiresKey())
	assert.False(t, Settings{Provider: "ollama"}.RequiresKey())
	assert.False(t, Settings{Provider: " none "}.IsConfigured())
	assert.Contains(t, Providers(), ProviderMock)
}
