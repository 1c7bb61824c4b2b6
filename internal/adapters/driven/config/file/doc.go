// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - Config: typed run configuration decoded from TOML or YAML
//   - PromptStore: operator-editable AI prompt templates
package file
