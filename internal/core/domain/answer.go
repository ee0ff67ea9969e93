package domain

// QAState is the state of one question-answering run.
type QAState string

// Q&A states. Answered and Failed are terminal.
const (
	QAIdle          QAState = "idle"
	QAQueryEmbedded QAState = "query_embedded"
	QARetrieved     QAState = "retrieved"
	QAAnswered      QAState = "answered"
	QAFailed        QAState = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s QAState) IsTerminal() bool {
	return s == QAAnswered || s == QAFailed
}

// SearchFilter narrows a vector search by payload metadata.
// Empty fields do not filter.
type SearchFilter struct {
	Company string  `json:"company,omitempty"`
	DocType DocType `json:"doc_type,omitempty"`
	DocID   string  `json:"doc_id,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f SearchFilter) IsEmpty() bool {
	return f.Company == "" && f.DocType == "" && f.DocID == ""
}

// Matches reports whether a record's metadata satisfies the filter.
func (f SearchFilter) Matches(m RecordMetadata) bool {
	if f.Company != "" && f.Company != m.Company {
		return false
	}
	if f.DocType != "" && f.DocType != m.DocType {
		return false
	}
	if f.DocID != "" && f.DocID != m.DocID {
		return false
	}
	return true
}

// SearchHit is one ranked vector search result.
type SearchHit struct {
	ID     string          `json:"id"`
	Score  float64         `json:"score"`
	Record EmbeddingRecord `json:"record"`
}

// AskOptions configures a single question.
type AskOptions struct {
	// TopK is the number of chunks to retrieve.
	TopK int

	// Filter restricts retrieval to a company, document type or document.
	Filter SearchFilter
}

// Citation attributes part of an answer to a retrieved chunk.
type Citation struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Span    Span    `json:"span"`
	Score   float64 `json:"score"`
}

// Answer is a language-model response paired with the chunks it was
// generated from.
type Answer struct {
	Question  string     `json:"question"`
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	State     QAState    `json:"state"`

	// Grounded is true only when Text was generated from retrieved context.
	Grounded bool `json:"grounded"`

	// Prompt is the exact prompt sent to the language model.
	Prompt string `json:"-"`

	// Contexts holds the chunk texts placed in the prompt, aligned with Citations.
	Contexts []string `json:"contexts,omitempty"`
}
