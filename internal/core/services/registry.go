package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

// Ensure Registry implements the interface.
var _ driving.DocumentRegistry = (*Registry)(nil)

// Registry is the validated, read-only set of manifest entries.
type Registry struct {
	entries map[string]domain.DocumentEntry
	ids     []string
}

// LoadRegistry reads the manifest at path and validates it.
func LoadRegistry(loader driven.ManifestLoader, path string) (*Registry, error) {
	entries, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(entries)
}

// NewRegistry validates entries and builds a registry. Every malformed
// entry is reported in a single ErrConfiguration.
func NewRegistry(entries []domain.DocumentEntry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: manifest lists no documents", domain.ErrConfiguration)
	}

	r := &Registry{entries: make(map[string]domain.DocumentEntry, len(entries))}
	var errs []error

	for i, e := range entries {
		name := e.ID
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("entry %d", i+1)
		}
		for _, problem := range e.Validate() {
			errs = append(errs, fmt.Errorf("%s: %s", name, problem))
		}
		if e.ID == "" {
			continue
		}
		if _, dup := r.entries[e.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate doc_id", e.ID))
			continue
		}
		r.entries[e.ID] = e
		r.ids = append(r.ids, e.ID)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: invalid manifest: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	sort.Strings(r.ids)
	return r, nil
}

// Get returns the entry for docID.
func (r *Registry) Get(docID string) (domain.DocumentEntry, error) {
	e, ok := r.entries[docID]
	if !ok {
		return domain.DocumentEntry{}, fmt.Errorf("%w: document %q", domain.ErrNotFound, docID)
	}
	return e, nil
}

// List returns all entries ordered by doc_id.
func (r *Registry) List() []domain.DocumentEntry {
	out := make([]domain.DocumentEntry, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.entries[id])
	}
	return out
}

// Companies returns the distinct companies, sorted.
func (r *Registry) Companies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.ids {
		c := r.entries[id].Company
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Select resolves docIDs (all documents when empty) and keeps those whose
// company matches, ignoring case. Unknown ids and an empty selection are errors.
func (r *Registry) Select(docIDs []string, company string) ([]domain.DocumentEntry, error) {
	var candidates []domain.DocumentEntry
	if len(docIDs) == 0 {
		candidates = r.List()
	} else {
		var missing []string
		seen := make(map[string]bool, len(docIDs))
		for _, id := range docIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			e, ok := r.entries[id]
			if !ok {
				missing = append(missing, id)
				continue
			}
			candidates = append(candidates, e)
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: unknown doc_id %s", domain.ErrNotFound, strings.Join(missing, ", "))
		}
	}

	if company == "" {
		return candidates, nil
	}
	var out []domain.DocumentEntry
	for _, e := range candidates {
		if strings.EqualFold(e.Company, company) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no documents for company %q", domain.ErrNotFound, company)
	}
	return out, nil
}
