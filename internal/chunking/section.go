package chunking

import (
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// MaxSectionSentenceRunes bounds sentences kept by the section strategy.
// Longer runs are almost always tables that lost their punctuation; they
// are left out and show up in ChunkFile.Dropped.
const MaxSectionSentenceRunes = 2500

// SplitSections packs sentences like SplitSentences but never lets a chunk
// cross a heading boundary, and prefixes each chunk with its heading trail
// as "Section: X | Subsection: Y".
func SplitSections(in Input, p domain.StrategyParams) ([]Piece, error) {
	if p.ChunkSize <= 0 || p.Overlap >= p.ChunkSize {
		return nil, domain.ErrConfiguration
	}

	var pieces []Piece
	var run []sentence
	runKey := ""
	runPrefix := ""

	flush := func() {
		for _, r := range packSentences(run, p) {
			pieces = append(pieces, Piece{Range: r, Prefix: runPrefix})
		}
		run = run[:0]
	}

	for _, s := range sentences(in.Stream) {
		if s.Len() > MaxSectionSentenceRunes {
			flush()
			continue
		}

		headings := headingsAt(in, s.Start)
		key := strings.Join(headings, "\x00")
		if len(run) > 0 && key != runKey {
			flush()
		}
		if len(run) == 0 {
			runKey = key
			runPrefix = sectionPrefix(headings)
		}
		run = append(run, s)
	}
	flush()

	return pieces, nil
}

// headingsAt returns the heading trail of the segment containing offset.
func headingsAt(in Input, offset int) []string {
	idx := segmentAt(in.Ranges, offset)
	if idx < 0 {
		return nil
	}
	return in.Segments[idx].Headings
}

// sectionPrefix renders the outermost heading as the section and the
// innermost as the subsection.
func sectionPrefix(headings []string) string {
	switch len(headings) {
	case 0:
		return ""
	case 1:
		return "Section: " + headings[0] + "\n"
	default:
		return "Section: " + headings[0] + " | Subsection: " + headings[len(headings)-1] + "\n"
	}
}
