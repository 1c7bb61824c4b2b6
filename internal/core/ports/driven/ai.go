package driven

import (
	"context"
	"encoding/json"
)

// AIProvider produces schema-constrained structured output.
type AIProvider interface {
	// Name identifies the provider in logs.
	Name() string

	// Capabilities reports what the provider supports.
	Capabilities() AICapabilities

	// Generate returns a JSON document intended to satisfy req.Schema.
	// The caller validates it; providers do not.
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)

	// Close releases resources.
	Close() error
}

// AICapabilities describes what a provider supports.
type AICapabilities struct {
	// MultiField is true when several target fields can be produced in one call.
	MultiField bool
}

// GenerateRequest is a structured generation request.
type GenerateRequest struct {
	// Task names the request kind ("enhance", "classify").
	Task string

	// Instructions is the system prompt.
	Instructions string

	// Prompt is the user prompt, rendered from Context and Targets.
	Prompt string

	// Context carries the record's known fields.
	Context map[string]string

	// Targets lists the fields to produce.
	Targets []string

	// SchemaName names the schema for providers that require one.
	SchemaName string

	// Schema is the JSON Schema the response must satisfy.
	Schema map[string]any

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls sampling.
	Temperature float64
}

// SchemaValidator validates JSON documents against JSON Schemas.
type SchemaValidator interface {
	// Validate returns an error when payload does not satisfy schema.
	Validate(schema map[string]any, payload []byte) error
}
