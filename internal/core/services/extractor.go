package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Extractor reads a registered document and produces position-marked text.
// Failures are wrapped in domain.ErrExtraction and are never retried.
type Extractor struct {
	plaintext driven.Normaliser
	markdown  driven.Normaliser
	converter driven.DocumentConverter
}

// NewExtractor creates an extractor. The markdown normaliser handles both
// .md sources and converter output.
func NewExtractor(plaintext, markdown driven.Normaliser, converter driven.DocumentConverter) *Extractor {
	return &Extractor{
		plaintext: plaintext,
		markdown:  markdown,
		converter: converter,
	}
}

// Extract produces the ExtractedText for entry.
func (e *Extractor) Extract(ctx context.Context, entry domain.DocumentEntry) (domain.ExtractedText, error) {
	var (
		text domain.ExtractedText
		err  error
	)

	switch entry.Format {
	case domain.FormatPlaintext:
		text, err = e.extractPlaintext(ctx, entry.SourcePath)
	case domain.FormatDocx:
		text, err = e.extractDocx(ctx, entry.SourcePath)
	default:
		err = fmt.Errorf("%w: format %q", domain.ErrUnsupportedType, entry.Format)
	}
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, entry.SourcePath, err)
	}
	return text, nil
}

func (e *Extractor) extractPlaintext(ctx context.Context, path string) (domain.ExtractedText, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ExtractedText{}, err
	}

	normaliser := e.plaintext
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		normaliser = e.markdown
	}
	return normaliser.Normalise(ctx, content)
}

func (e *Extractor) extractDocx(ctx context.Context, path string) (domain.ExtractedText, error) {
	if e.converter == nil {
		return domain.ExtractedText{}, fmt.Errorf("%w: no document converter configured", domain.ErrUnsupportedType)
	}
	md, err := e.converter.ToMarkdown(ctx, path)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("convert: %w", err)
	}
	return e.markdown.Normalise(ctx, []byte(md))
}
