package driven

// PromptStore provides operator-editable AI prompt templates.
type PromptStore interface {
	// Load returns the template for name, or an error when none is stored.
	// Callers fall back to their built-in template on error.
	Load(name string) (string, error)
}

// Well-known prompt names. Templates carry no format placeholders;
// record context is appended by the caller.
const (
	// PromptEnhanceSystem is the system prompt for field enhancement.
	PromptEnhanceSystem = "enhance_system"

	// PromptClassifySystem is the system prompt for classification.
	PromptClassifySystem = "classify_system"
)
