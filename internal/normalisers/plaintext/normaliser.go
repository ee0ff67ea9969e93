// Package plaintext normalises plain text filings and transcripts.
//
// Page boundaries come from "[page N]" lines and form feeds. Text before
// the first boundary belongs to page 1.
package plaintext

import (
	"context"
	"strconv"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const formFeed = "\f"

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "plaintext"
}

// Normalise splits content into one segment per page.
func (n *Normaliser) Normalise(_ context.Context, content []byte) (domain.ExtractedText, error) {
	text := strings.ToValidUTF8(string(content), "�")
	text = normalisers.IsolatePageMarkers(normalisers.NormaliseNewlines(text))
	// Give every form feed a line of its own.
	text = strings.ReplaceAll(text, formFeed, "\n"+formFeed+"\n")

	var out domain.ExtractedText
	label := "1"
	page := 1
	var buf []string

	flush := func() {
		body := normalisers.CleanText(strings.Join(buf, "\n"))
		buf = buf[:0]
		if body == "" {
			return
		}
		out.Segments = append(out.Segments, domain.Segment{
			Marker: domain.PageMarker(label),
			Text:   body,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		if line == formFeed {
			flush()
			page++
			label = strconv.Itoa(page)
			continue
		}
		if next, ok := normalisers.ParsePageMarker(line); ok {
			flush()
			label = next
			if num, err := strconv.Atoi(next); err == nil {
				page = num
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return out, nil
}
