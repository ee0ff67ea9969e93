package domain

// RecordMetadata is the payload stored next to each vector.
type RecordMetadata struct {
	DocID         string  `json:"doc_id"`
	Company       string  `json:"company"`
	FiscalPeriod  string  `json:"fiscal_period,omitempty"`
	DocType       DocType `json:"doc_type,omitempty"`
	Span          Span    `json:"span"`
	SequenceIndex int     `json:"sequence_index"`
	TokenCount    int     `json:"token_count"`

	// ContentHash ties the record to the ChunkFile version it came from.
	ContentHash string `json:"content_hash"`
}

// EmbeddingRecord pairs a chunk with its embedding vector.
// Records are never mutated; reprocessing writes replacements under the same ChunkID.
type EmbeddingRecord struct {
	ChunkID  string         `json:"chunk_id"`
	Text     string         `json:"text"`
	Vector   []float32      `json:"embedding"`
	Metadata RecordMetadata `json:"metadata"`
}

// EmbeddingGap describes a chunk whose embedding failed after all retries.
type EmbeddingGap struct {
	ChunkID       string `json:"chunk_id"`
	SequenceIndex int    `json:"sequence_index"`
	Attempts      int    `json:"attempts"`
	Err           error  `json:"-"`
}

// EmbedReport summarises one document's embedding run.
type EmbedReport struct {
	DocID       string
	ContentHash string

	// Records holds successful embeddings in sequence order.
	Records []EmbeddingRecord

	// Gaps holds chunks excluded from the upsert.
	Gaps []EmbeddingGap

	// Skipped is true when the index was already current.
	Skipped bool

	// Evicted is the number of stale records removed before upsert.
	Evicted int
}

// IndexState records which ChunkFile version is live in the vector store.
type IndexState struct {
	DocID       string
	Company     string
	DocType     DocType
	ContentHash string
	EmbedModel  string
	Dimensions  int
	Records     int
	Gaps        int

	// LayoutHash fingerprints the spans stored with the records. Empty for
	// states written before layouts were tracked.
	LayoutHash string
}

// Matches reports whether records of this document can satisfy f.
func (s IndexState) Matches(f SearchFilter) bool {
	return f.Matches(RecordMetadata{DocID: s.DocID, Company: s.Company, DocType: s.DocType})
}
