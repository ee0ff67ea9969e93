// Package manifest loads the document manifest from YAML (or JSON, which
// YAML accepts).
//
// Two shapes are accepted. The usual one maps doc_id to an entry:
//
//	acme-fy2023-10k:
//	  company: Acme Corp
//	  fiscal_period: FY2023
//	  doc_type: filing
//	  source_path: docs/acme-10k.txt
//
// A list of entries that each carry a doc_id field is also accepted.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.ManifestLoader = (*Loader)(nil)

// Loader reads manifests from disk.
type Loader struct{}

// New creates a manifest loader.
func New() *Loader {
	return &Loader{}
}

// listEntry is the list-shaped form, where the id travels with the entry.
type listEntry struct {
	DocID                string `yaml:"doc_id"`
	domain.DocumentEntry `yaml:",inline"`
}

// Load parses the manifest at path, keeping document order. Relative paths
// resolve against the manifest's directory and missing formats are inferred
// from the source extension. Field validation is left to the registry.
func (l *Loader) Load(path string) ([]domain.DocumentEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", domain.ErrConfiguration, err)
	}

	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve manifest dir: %v", domain.ErrConfiguration, err)
	}
	for i := range entries {
		resolve(&entries[i], base)
	}
	return entries, nil
}

// Parse decodes manifest bytes without touching the filesystem.
func Parse(data []byte) ([]domain.DocumentEntry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", domain.ErrConfiguration, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.MappingNode:
		return parseMapping(doc)
	case yaml.SequenceNode:
		return parseSequence(doc)
	default:
		return nil, fmt.Errorf("%w: manifest must be a mapping of doc_id to entry or a list of entries (line %d)",
			domain.ErrConfiguration, doc.Line)
	}
}

func parseMapping(doc *yaml.Node) ([]domain.DocumentEntry, error) {
	entries := make([]domain.DocumentEntry, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]

		var entry domain.DocumentEntry
		if err := value.Decode(&entry); err != nil {
			return nil, fmt.Errorf("%w: entry %q (line %d): %v", domain.ErrConfiguration, key.Value, key.Line, err)
		}
		entry.ID = key.Value
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseSequence(doc *yaml.Node) ([]domain.DocumentEntry, error) {
	entries := make([]domain.DocumentEntry, 0, len(doc.Content))
	for i, item := range doc.Content {
		var le listEntry
		if err := item.Decode(&le); err != nil {
			return nil, fmt.Errorf("%w: entry %d (line %d): %v", domain.ErrConfiguration, i, item.Line, err)
		}
		le.DocumentEntry.ID = le.DocID
		entries = append(entries, le.DocumentEntry)
	}
	return entries, nil
}

// resolve anchors relative paths at base and fills in the format.
func resolve(e *domain.DocumentEntry, base string) {
	e.SourcePath = anchor(e.SourcePath, base)
	e.QuestionsFile = anchor(e.QuestionsFile, base)
	e.EvalReferenceFile = anchor(e.EvalReferenceFile, base)
	if e.Format == "" {
		e.Format = domain.InferFormat(e.SourcePath)
	}
}

func anchor(path, base string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
