package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads AI prompt templates from user-editable files on disk.
// A missing file is an error; callers fall back to their built-in prompt.
//
// The store uses lazy initialisation: the directory and its README are only
// created on the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a prompt store rooted at promptDir.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if strings.TrimSpace(promptDir) == "" {
		return nil, fmt.Errorf("prompt directory is required")
	}
	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template stored in <dir>/<name>.txt.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	if prompt == "" {
		return "", fmt.Errorf("load prompt %q: file is empty", name)
	}

	// Double-check so concurrent loads agree on one value.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the cache so edited files are picked up by the next run.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# contentpipe prompts

Files in this directory replace the built-in system prompts of the AI stages.

- ` + "`" + driven.PromptEnhanceSystem + ".txt`" + ` - fills missing or weak titles and excerpts
- ` + "`" + driven.PromptClassifySystem + ".txt`" + ` - assigns one taxonomy category with a confidence

Delete a file to return to the built-in prompt. Templates take no
placeholders: the record's known fields and the allowed categories are
appended to every request.
`
	return os.WriteFile(path, []byte(content), 0o600)
}
