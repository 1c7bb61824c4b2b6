package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
)

func loadTestConfig(t *testing.T, extra string) *configfile.Config {
	t.Helper()
	cfg, err := configfile.Decode([]byte(validConfig+extra), configfile.FormatTOML)
	require.NoError(t, err)
	return cfg
}

func TestBuildPipeline_InMemory(t *testing.T) {
	pipeline, closeFn, err := buildPipeline(loadTestConfig(t, ""))

	require.NoError(t, err)
	require.NotNil(t, pipeline)
	assert.False(t, pipeline.Status().Running)
	assert.NoError(t, closeFn())
}

func TestBuildPipeline_SQLiteCacheAndPrompts(t *testing.T) {
	dir := t.TempDir()
	cfg := loadTestConfig(t, "")
	cfg.Cache.Path = filepath.Join(dir, "cache.db")
	cfg.Prompts = filepath.Join(dir, "prompts")

	pipeline, closeFn, err := buildPipeline(cfg)

	require.NoError(t, err)
	require.NotNil(t, pipeline)
	assert.FileExists(t, cfg.Cache.Path)
	assert.NoError(t, closeFn())
}

func TestNewProvider(t *testing.T) {
	disabled := false

	assert.Nil(t, newProvider(configfile.AIConfig{Provider: "none"}))
	assert.Nil(t, newProvider(configfile.AIConfig{Provider: "mock", Enabled: &disabled}))
	assert.NotNil(t, newProvider(configfile.AIConfig{Provider: "mock"}))

	t.Setenv("CONTENTPIPE_TEST_KEY", "")
	assert.Nil(t, newProvider(configfile.AIConfig{Provider: "openai", APIKeyEnv: "CONTENTPIPE_TEST_KEY"}),
		"a missing key disables AI instead of failing")
}

func TestOpenCaches_BadPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, _, _, err := openCaches(configfile.CacheConfig{Path: filepath.Join(file, "cache.db")})

	assert.Error(t, err)
}
