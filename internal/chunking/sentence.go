package chunking

import (
	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// SplitSentences packs consecutive sentences into a chunk until adding the
// next one would exceed chunk_size. A sentence larger than chunk_size is
// emitted as its own oversized chunk; sentences are never split.
//
// Overlap carries trailing sentences of one chunk into the next while their
// combined size stays within overlap.
func SplitSentences(in Input, p domain.StrategyParams) ([]Piece, error) {
	if p.ChunkSize <= 0 || p.Overlap >= p.ChunkSize {
		return nil, domain.ErrConfiguration
	}
	groups := packSentences(sentences(in.Stream), p)
	pieces := make([]Piece, len(groups))
	for i, g := range groups {
		pieces[i] = Piece{Range: g}
	}
	return pieces, nil
}

// packSentences greedily groups sentences and returns the body range of each group.
func packSentences(sents []sentence, p domain.StrategyParams) []domain.Range {
	var out []domain.Range
	start := 0
	for start < len(sents) {
		end := start + 1
		for end < len(sents) && packedSize(sents, start, end+1, p.Unit) <= p.ChunkSize {
			end++
		}
		out = append(out, domain.Range{Start: sents[start].Start, End: sents[end-1].End})
		if end == len(sents) {
			break
		}
		start = nextStart(sents, start, end, p)
	}
	return out
}

// nextStart picks where the following chunk begins. It backs up from end
// over sentences fitting within the overlap budget, but only when the next
// chunk can still grow past end; otherwise overlap would only repeat text.
func nextStart(sents []sentence, start, end int, p domain.StrategyParams) int {
	if p.Overlap == 0 {
		return end
	}
	next := end
	for k := end - 1; k > start; k-- {
		if packedSize(sents, k, end, p.Unit) > p.Overlap {
			break
		}
		next = k
	}
	if next < end && packedSize(sents, next, end+1, p.Unit) > p.ChunkSize {
		return end
	}
	return next
}
