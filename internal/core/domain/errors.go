package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown format, strategy or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrConfiguration indicates invalid strategy parameters or settings.
	// Fatal for the whole run; raised before any document is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrExtraction indicates a source could not be read or converted.
	// Fatal for one document only. Never retried.
	ErrExtraction = errors.New("extraction error")

	// ErrEmbedding indicates the embedding capability failed for a chunk.
	ErrEmbedding = errors.New("embedding error")

	// ErrRetrieval indicates the vector store could not serve a query.
	ErrRetrieval = errors.New("retrieval error")

	// ErrNoGroundedContext indicates retrieval succeeded but found nothing to
	// ground an answer on. Always wrapped together with ErrRetrieval.
	ErrNoGroundedContext = fmt.Errorf("%w: no answer grounded in context", ErrRetrieval)

	// ErrGeneration indicates the language model failed after retries.
	ErrGeneration = errors.New("generation error")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)

// StageError attributes a failure to one pipeline stage and document.
type StageError struct {
	Stage Stage
	DocID string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.DocID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.DocID, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err should abort an entire pipeline run rather
// than a single unit of work.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
