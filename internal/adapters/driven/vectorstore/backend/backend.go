// Package backend selects the driven.VectorStore named in settings.
package backend

import (
	"fmt"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore/weaviate"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// New returns the vector store for settings. The sqlite backend shares
// local's database; remote backends use collection as their namespace.
func New(settings domain.VectorStoreSettings, collection string, local *sqlite.Store) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory:
		return memory.New(), nil

	case domain.VectorBackendSQLite, "":
		if local == nil {
			return nil, fmt.Errorf("%w: sqlite vector store needs the local database", domain.ErrConfiguration)
		}
		return local.VectorStore(), nil

	case domain.VectorBackendQdrant:
		store, err := qdrant.NewStore(qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: collection,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.VectorBackendWeaviate:
		store, err := weaviate.NewStore(weaviate.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: collection,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}
