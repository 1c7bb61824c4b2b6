package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/services"
	"github.com/custodia-labs/contentpipe/internal/fetch"
)

// Configuration limits and defaults not owned by a component.
const (
	MaxSources               = 20
	DefaultMaxItemsPerSource = 50
	DefaultMaxAgeDays        = 30
	DefaultOutput            = "content.json"
	DefaultAPIKeyEnv         = "CONTENTPIPE_AI_API_KEY"
)

var affiliateTagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// Format is a configuration file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported config extension %q (want .toml, .yaml or .yml)",
			domain.ErrInvalidConfig, filepath.Ext(path))
	}
}

// Config is the run configuration.
type Config struct {
	// Output is the artifact path.
	Output string `toml:"output" yaml:"output"`

	// Summary, when set, receives the run summary.
	Summary string `toml:"summary" yaml:"summary"`

	// Categories extend the standard taxonomy.
	Categories []string `toml:"categories" yaml:"categories"`

	// Prompts is the directory of prompt templates. Empty uses built-in prompts.
	Prompts string `toml:"prompts" yaml:"prompts"`

	Pipeline PipelineConfig `toml:"pipeline" yaml:"pipeline"`
	AI       AIConfig       `toml:"ai" yaml:"ai"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache"`
	Sources  []SourceConfig `toml:"sources" yaml:"sources"`
}

// PipelineConfig tunes the fetch coordinator and the pipeline stages.
type PipelineConfig struct {
	MaxConcurrent       int     `toml:"max_concurrent" yaml:"max_concurrent"`
	RequestsPerSecond   float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	Burst               int     `toml:"burst" yaml:"burst"`
	TimeoutSeconds      int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxAttempts         int     `toml:"max_attempts" yaml:"max_attempts"`
	BackoffMS           int     `toml:"backoff_ms" yaml:"backoff_ms"`
	QualityThreshold    float64 `toml:"quality_threshold" yaml:"quality_threshold"`
	ConfidenceThreshold float64 `toml:"confidence_threshold" yaml:"confidence_threshold"`
	TitleSimilarity     float64 `toml:"title_similarity" yaml:"title_similarity"`
	MaxItemsPerSource   int     `toml:"max_items_per_source" yaml:"max_items_per_source"`

	// MaxAgeDays drops older items. Zero disables the filter; unset uses 30.
	MaxAgeDays *int `toml:"max_age_days" yaml:"max_age_days"`

	UserAgent string `toml:"user_agent" yaml:"user_agent"`
}

// AIConfig selects the AI provider.
type AIConfig struct {
	// Provider is openai, anthropic, ollama, mock or none.
	Provider string `toml:"provider" yaml:"provider"`
	Model    string `toml:"model" yaml:"model"`
	BaseURL  string `toml:"base_url" yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env" yaml:"api_key_env"`

	// Enabled turns AI stages off when false. Unset means enabled.
	Enabled *bool `toml:"enabled" yaml:"enabled"`
}

// IsEnabled reports whether AI stages should run.
func (a AIConfig) IsEnabled() bool {
	return (a.Enabled == nil || *a.Enabled) && a.Provider != "" && a.Provider != "none"
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	// Path is the sqlite database file. Empty keeps caches in memory.
	Path string `toml:"path" yaml:"path"`
}

// SourceConfig is one configured source.
type SourceConfig struct {
	Name         string            `toml:"name" yaml:"name"`
	Kind         string            `toml:"kind" yaml:"kind"`
	Endpoint     string            `toml:"endpoint" yaml:"endpoint"`
	AffiliateTag string            `toml:"affiliate_tag" yaml:"affiliate_tag"`
	FieldMapping map[string]string `toml:"field_mapping" yaml:"field_mapping"`
}

// Descriptor converts the source to its domain form.
func (s SourceConfig) Descriptor() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		Name:         strings.TrimSpace(s.Name),
		Kind:         domain.SourceKind(strings.ToLower(strings.TrimSpace(s.Kind))),
		Endpoint:     strings.TrimSpace(s.Endpoint),
		FieldMapping: s.FieldMapping,
		AffiliateTag: s.AffiliateTag,
	}
}

// Load reads, decodes, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidConfig, path, err)
	}
	cfg, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data, rejecting unknown fields, then applies defaults and validates.
func Decode(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrInvalidConfig, format)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}

	p := &c.Pipeline
	if p.MaxConcurrent == 0 {
		p.MaxConcurrent = fetch.DefaultMaxConcurrent
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = fetch.DefaultRequestsPerSecond
	}
	if p.Burst == 0 {
		p.Burst = fetch.DefaultBurst
	}
	if p.TimeoutSeconds == 0 {
		p.TimeoutSeconds = int(fetch.DefaultTimeout / time.Second)
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = fetch.DefaultMaxAttempts
	}
	if p.BackoffMS == 0 {
		p.BackoffMS = int(fetch.DefaultBaseDelay / time.Millisecond)
	}
	if p.QualityThreshold == 0 {
		p.QualityThreshold = services.DefaultQualityThreshold
	}
	if p.ConfidenceThreshold == 0 {
		p.ConfidenceThreshold = services.DefaultConfidenceThreshold
	}
	if p.TitleSimilarity == 0 {
		p.TitleSimilarity = services.DefaultTitleSimilarity
	}
	if p.MaxItemsPerSource == 0 {
		p.MaxItemsPerSource = DefaultMaxItemsPerSource
	}
	if p.MaxAgeDays == nil {
		days := DefaultMaxAgeDays
		p.MaxAgeDays = &days
	}
	if p.UserAgent == "" {
		p.UserAgent = fetch.DefaultUserAgent
	}

	if c.AI.Provider == "" {
		c.AI.Provider = "none"
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.APIKeyEnv == "" {
		c.AI.APIKeyEnv = DefaultAPIKeyEnv
	}
}

// Validate checks the configuration once at load. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch n := len(c.Sources); {
	case n == 0:
		add("at least one source is required")
	case n > MaxSources:
		add("at most %d sources are allowed, got %d", MaxSources, n)
	}

	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		d := s.Descriptor()
		if d.Name != "" {
			if names[strings.ToLower(d.Name)] {
				add("sources[%d]: duplicate name %q", i, d.Name)
			}
			names[strings.ToLower(d.Name)] = true
		}
		if err := d.Validate(); err != nil {
			add("sources[%d]: %s", i, strings.TrimPrefix(err.Error(), domain.ErrInvalidConfig.Error()+": "))
		}
		if d.AffiliateTag != "" && !affiliateTagPattern.MatchString(d.AffiliateTag) {
			add("sources[%d]: affiliate_tag %q must match %s", i, d.AffiliateTag, affiliateTagPattern)
		}
	}

	p := c.Pipeline
	if p.MaxConcurrent < 1 {
		add("pipeline.max_concurrent must be positive")
	}
	if p.Burst < 1 {
		add("pipeline.burst must be positive")
	}
	if p.TimeoutSeconds < 1 {
		add("pipeline.timeout_seconds must be positive")
	}
	if p.MaxAttempts < 1 {
		add("pipeline.max_attempts must be positive")
	}
	if p.BackoffMS < 0 {
		add("pipeline.backoff_ms must not be negative")
	}
	if p.MaxItemsPerSource < 0 {
		add("pipeline.max_items_per_source must not be negative")
	}
	if p.MaxAgeDays != nil && *p.MaxAgeDays < 0 {
		add("pipeline.max_age_days must not be negative")
	}
	for name, v := range map[string]float64{
		"quality_threshold":    p.QualityThreshold,
		"confidence_threshold": p.ConfidenceThreshold,
		"title_similarity":     p.TitleSimilarity,
	} {
		if v < 0 || v > 1 {
			add("pipeline.%s must be within [0, 1], got %g", name, v)
		}
	}

	switch c.AI.Provider {
	case "openai", "anthropic", "ollama", "mock", "none":
	default:
		add("ai.provider %q is not one of openai, anthropic, ollama, mock, none", c.AI.Provider)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

// Descriptors returns the sources in configured order.
func (c *Config) Descriptors() []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = s.Descriptor()
	}
	return out
}

// Taxonomy returns the standard categories extended with the configured ones.
func (c *Config) Taxonomy() domain.Taxonomy {
	return domain.NewTaxonomy(c.Categories...)
}

// Timeout returns the per-call timeout.
func (p PipelineConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Backoff returns the first retry delay.
func (p PipelineConfig) Backoff() time.Duration {
	return time.Duration(p.BackoffMS) * time.Millisecond
}

// MaxAge returns the item age limit. Zero disables the filter.
func (p PipelineConfig) MaxAge() time.Duration {
	if p.MaxAgeDays == nil {
		return DefaultMaxAgeDays * 24 * time.Hour
	}
	return time.Duration(*p.MaxAgeDays) * 24 * time.Hour
}
