package domain

import (
	"strings"
	"unicode/utf8"
)

// MarkerKind identifies what a position marker refers to.
type MarkerKind string

// Available marker kinds.
const (
	// MarkerPage marks a page boundary (plaintext [page N] markers, form feeds).
	MarkerPage MarkerKind = "page"

	// MarkerSection marks a heading in converted documents.
	MarkerSection MarkerKind = "section"

	// MarkerTable marks a table block in converted documents.
	MarkerTable MarkerKind = "table"
)

// Marker is a position marker used for citation.
type Marker struct {
	Kind  MarkerKind `json:"kind"`
	Label string     `json:"label"`
}

// PageMarker returns a page marker for the given page label.
func PageMarker(label string) Marker {
	return Marker{Kind: MarkerPage, Label: label}
}

// IsZero reports whether the marker is unset.
func (m Marker) IsZero() bool {
	return m.Kind == "" && m.Label == ""
}

// String renders the marker for citations.
func (m Marker) String() string {
	switch m.Kind {
	case MarkerPage:
		return "page " + m.Label
	case MarkerTable:
		return "table " + m.Label
	case MarkerSection:
		return "section " + quote(m.Label)
	default:
		return m.Label
	}
}

// Segment is one contiguous piece of extracted text under a single marker.
type Segment struct {
	// Marker locates the segment in the source.
	Marker Marker `json:"marker"`

	// Headings is the enclosing heading trail, outermost first.
	Headings []string `json:"headings,omitempty"`

	// Text is the normalised segment content.
	Text string `json:"text"`
}

// Range is a half-open [Start, End) interval of rune offsets.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two ranges share at least one rune.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// SegmentSeparator joins segments in the flattened stream.
const SegmentSeparator = "\n\n"

// ExtractedText is the ordered output of the extractor.
type ExtractedText struct {
	Segments []Segment `json:"segments"`
}

// IsEmpty reports whether there is no non-whitespace text.
func (t ExtractedText) IsEmpty() bool {
	for i := range t.Segments {
		if strings.TrimSpace(t.Segments[i].Text) != "" {
			return false
		}
	}
	return true
}

// Flatten joins all segments into a single stream and returns the rune
// range each segment occupies within it.
func (t ExtractedText) Flatten() (string, []Range) {
	var b strings.Builder
	ranges := make([]Range, len(t.Segments))
	pos := 0
	sepLen := utf8.RuneCountInString(SegmentSeparator)

	for i := range t.Segments {
		if i > 0 {
			b.WriteString(SegmentSeparator)
			pos += sepLen
		}
		n := utf8.RuneCountInString(t.Segments[i].Text)
		b.WriteString(t.Segments[i].Text)
		ranges[i] = Range{Start: pos, End: pos + n}
		pos += n
	}

	return b.String(), ranges
}
