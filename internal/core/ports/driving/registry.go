package driving

import "github.com/custodia-labs/filings-qa/internal/core/domain"

// DocumentRegistry resolves document identifiers to manifest entries.
type DocumentRegistry interface {
	// Get returns the entry for docID, or domain.ErrNotFound.
	Get(docID string) (domain.DocumentEntry, error)

	// List returns all entries ordered by doc_id.
	List() []domain.DocumentEntry

	// Select returns the entries for docIDs (all when empty), optionally
	// restricted to one company. Unknown ids are an error.
	Select(docIDs []string, company string) ([]domain.DocumentEntry, error)
}
