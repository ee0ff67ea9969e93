package chunking

import (
	"unicode"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// words returns the rune range of every whitespace-separated word.
func words(stream []rune) []domain.Range {
	var out []domain.Range
	start := -1
	for i, r := range stream {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, domain.Range{Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, domain.Range{Start: start, End: len(stream)})
	}
	return out
}

// sentence is a trimmed sentence range with its precomputed token count.
type sentence struct {
	domain.Range
	tokens int
}

// sentences splits the stream at terminal punctuation followed by
// whitespace, and at paragraph breaks (whitespace holding two or more
// newlines). Returned ranges are trimmed and never empty.
func sentences(stream []rune) []sentence {
	var out []sentence
	emit := func(start, end int) {
		for start < end && unicode.IsSpace(stream[start]) {
			start++
		}
		for end > start && unicode.IsSpace(stream[end-1]) {
			end--
		}
		if start < end {
			out = append(out, sentence{
				Range:  domain.Range{Start: start, End: end},
				tokens: countWords(stream[start:end]),
			})
		}
	}

	start := 0
	i := 0
	for i < len(stream) {
		r := stream[i]

		if isTerminal(r) {
			end := i + 1
			// Keep closing quotes and brackets with the sentence.
			for end < len(stream) && isCloser(stream[end]) {
				end++
			}
			if end == len(stream) || unicode.IsSpace(stream[end]) {
				emit(start, end)
				start = end
				i = end
				continue
			}
		}

		if r == '\n' && isParagraphBreak(stream, i) {
			emit(start, i)
			for i < len(stream) && unicode.IsSpace(stream[i]) {
				i++
			}
			start = i
			continue
		}
		i++
	}
	emit(start, len(stream))
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	default:
		return false
	}
}

// isParagraphBreak reports whether the whitespace run containing the
// newline at i holds at least two newlines.
func isParagraphBreak(stream []rune, i int) bool {
	for j := i + 1; j < len(stream) && unicode.IsSpace(stream[j]); j++ {
		if stream[j] == '\n' {
			return true
		}
	}
	return false
}

func countWords(rs []rune) int {
	n := 0
	in := false
	for _, r := range rs {
		if unicode.IsSpace(r) {
			in = false
			continue
		}
		if !in {
			n++
			in = true
		}
	}
	return n
}

// packedSize measures sentences[from:to] as one chunk body.
func packedSize(sents []sentence, from, to int, unit domain.Unit) int {
	if from >= to {
		return 0
	}
	if unit == domain.UnitCharacters {
		return sents[to-1].End - sents[from].Start
	}
	n := 0
	for _, s := range sents[from:to] {
		n += s.tokens
	}
	return n
}
