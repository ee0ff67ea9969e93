package chunking

import (
	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// SplitSequential advances a fixed-size window across the stream by
// chunk_size - overlap units per step. The final window may be shorter.
// Windows stop once one reaches the end of the stream.
func SplitSequential(in Input, p domain.StrategyParams) ([]Piece, error) {
	step := p.ChunkSize - p.Overlap
	if p.ChunkSize <= 0 || step <= 0 {
		return nil, domain.ErrConfiguration
	}

	if p.Unit == domain.UnitTokens {
		return sequentialWords(words(in.Stream), p.ChunkSize, step), nil
	}

	n := len(in.Stream)
	pieces := make([]Piece, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := min(start+p.ChunkSize, n)
		pieces = append(pieces, Piece{Range: domain.Range{Start: start, End: end}})
		if end == n {
			break
		}
	}
	return pieces, nil
}

// sequentialWords windows over words and maps each window back to the rune
// range from its first word's start to its last word's end.
func sequentialWords(ws []domain.Range, size, step int) []Piece {
	pieces := make([]Piece, 0, len(ws)/step+1)
	for start := 0; start < len(ws); start += step {
		end := min(start+size, len(ws))
		pieces = append(pieces, Piece{Range: domain.Range{
			Start: ws[start].Start,
			End:   ws[end-1].End,
		}})
		if end == len(ws) {
			break
		}
	}
	return pieces
}
