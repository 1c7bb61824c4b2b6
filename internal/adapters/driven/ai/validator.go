package ai

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure SchemaValidator implements the interface.
var _ driven.SchemaValidator = (*SchemaValidator)(nil)

// SchemaValidator validates AI output against JSON Schemas. Resolved schemas
// are cached by their canonical JSON encoding.
type SchemaValidator struct {
	mu       sync.Mutex
	resolved map[string]*jsonschema.Resolved
}

// NewSchemaValidator creates a validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{resolved: make(map[string]*jsonschema.Resolved)}
}

// Validate decodes payload and checks it against schema. Failures wrap
// domain.ErrEnhancementSchemaInvalid.
func (v *SchemaValidator) Validate(schema map[string]any, payload []byte) error {
	rs, err := v.resolve(schema)
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(payload, &instance); err != nil {
		return fmt.Errorf("%w: not JSON: %w", domain.ErrEnhancementSchemaInvalid, err)
	}
	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEnhancementSchemaInvalid, err)
	}
	return nil
}

func (v *SchemaValidator) resolve(schema map[string]any) (*jsonschema.Resolved, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	key := string(raw)

	v.mu.Lock()
	defer v.mu.Unlock()

	if rs, ok := v.resolved[key]; ok {
		return rs, nil
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	v.resolved[key] = rs
	return rs, nil
}
