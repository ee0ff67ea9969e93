package domain

import (
	"path/filepath"
	"strings"
)

// DocType classifies a registered document.
type DocType string

// Available document types.
const (
	// DocTypeFiling is an annual or quarterly report.
	DocTypeFiling DocType = "filing"

	// DocTypeTranscript is an earnings-call transcript.
	DocTypeTranscript DocType = "transcript"
)

// IsValid returns true if the document type is recognised.
func (t DocType) IsValid() bool {
	return t == DocTypeFiling || t == DocTypeTranscript
}

// String returns the string representation.
func (t DocType) String() string {
	return string(t)
}

// Format identifies how a source artifact is extracted.
type Format string

// Available source formats.
const (
	// FormatPlaintext is UTF-8 text, optionally with [page N] markers.
	FormatPlaintext Format = "plaintext"

	// FormatDocx is a Word document, converted to Markdown before extraction.
	FormatDocx Format = "docx"
)

// IsValid returns true if the format is recognised.
func (f Format) IsValid() bool {
	return f == FormatPlaintext || f == FormatDocx
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// InferFormat derives a format from a source path extension.
// Returns an empty Format when the extension is not recognised.
func InferFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md", ".markdown":
		return FormatPlaintext
	case ".docx":
		return FormatDocx
	default:
		return ""
	}
}

// DocumentEntry identifies one source document in the manifest.
// Entries are immutable once the registry has loaded them.
type DocumentEntry struct {
	// ID is the stable, human-readable, unique document identifier.
	ID string `json:"doc_id" yaml:"-"`

	// Company is the issuer the document belongs to.
	Company string `json:"company" yaml:"company"`

	// FiscalPeriod is the reporting period (e.g. "FY2023", "Q2 2024").
	FiscalPeriod string `json:"fiscal_period" yaml:"fiscal_period"`

	// SourcePath is the location of the source artifact.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// DocType is filing or transcript.
	DocType DocType `json:"doc_type" yaml:"doc_type"`

	// Format is plaintext or docx. Inferred from SourcePath when empty.
	Format Format `json:"format" yaml:"format,omitempty"`

	// QuestionsFile optionally points to evaluation questions.
	QuestionsFile string `json:"questions_file,omitempty" yaml:"questions_file,omitempty"`

	// EvalReferenceFile optionally points to reference answers.
	EvalReferenceFile string `json:"eval_reference_file,omitempty" yaml:"eval_reference_file,omitempty"`
}

// Validate checks that all required fields are present and well-formed.
// Every problem is reported, not just the first.
func (e DocumentEntry) Validate() []string {
	var problems []string
	if strings.TrimSpace(e.ID) == "" {
		problems = append(problems, "doc_id is required")
	}
	if strings.TrimSpace(e.Company) == "" {
		problems = append(problems, "company is required")
	}
	if strings.TrimSpace(e.FiscalPeriod) == "" {
		problems = append(problems, "fiscal_period is required")
	}
	if strings.TrimSpace(e.SourcePath) == "" {
		problems = append(problems, "source_path is required")
	}
	if !e.DocType.IsValid() {
		problems = append(problems, "doc_type must be filing or transcript, got "+quote(string(e.DocType)))
	}
	if !e.Format.IsValid() {
		problems = append(problems, "format must be plaintext or docx, got "+quote(string(e.Format)))
	}
	return problems
}

func quote(s string) string {
	return `"` + s + `"`
}
