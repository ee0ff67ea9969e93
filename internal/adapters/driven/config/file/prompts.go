package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/core/services"
	"github.com/custodia-labs/filings-qa/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// builtinPrompt pairs a default template with the check an override must pass.
type builtinPrompt struct {
	text  string
	check func(string) error
}

var builtinPrompts = map[string]builtinPrompt{
	driven.PromptAnswer: {text: services.DefaultAnswerPrompt, check: services.CheckAnswerTemplate},
}

// PromptStore serves prompt templates from <dir>/<name>.txt. A file is
// re-read when its modification time changes, so a running TUI picks up
// edits. Missing or invalid files resolve to the built-in template.
type PromptStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
	size    int64
}

// NewPromptStore creates a prompt store over dir, ~/.filings/prompts when
// empty. No I/O happens until Load or EnsureDefaults.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// EnsureDefaults creates the directory and writes each built-in template
// and a README when they are missing. Existing files are left alone.
func (s *PromptStore) EnsureDefaults() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	files := map[string]string{"README.md": promptReadme}
	for name, p := range builtinPrompts {
		files[name+".txt"] = p.text
	}
	for name, content := range files {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := builtinPrompts[name]
	path := filepath.Join(s.dir, name+".txt")

	info, err := os.Stat(path)
	if err != nil {
		if known {
			return builtin.text, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
		}
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if known {
			return builtin.text, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	if known && builtin.check != nil {
		if err := builtin.check(text); err != nil {
			logger.Warn("ignoring %s, using the built-in prompt: %v", path, err)
			text = builtin.text
		}
	}

	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime(), size: info.Size()}
	return text, nil
}

const promptReadme = `# Filings Prompts

This directory holds the prompt templates used when answering questions.

## Files

- ` + "`answer.txt`" + ` frames the retrieved context and the question

## Customisation

Edit a file to change how questions are put to the model. Edits are picked
up on the next question, including inside a running TUI.

## Placeholders

` + "`answer.txt`" + ` must contain exactly two ` + "`%s`" + ` placeholders: the numbered
context blocks first, then the question. Any other ` + "`%`" + ` must be removed.
A template that breaks these rules is ignored with a warning and the
built-in prompt is used instead.
`
