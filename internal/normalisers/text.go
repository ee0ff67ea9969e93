package normalisers

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\v\x{00a0}]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

// CleanText repairs invalid UTF-8, normalises line endings, collapses runs of
// horizontal whitespace and trims every line. Paragraph breaks survive as a
// single blank line.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = NormaliseNewlines(s)
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// NormaliseNewlines converts CRLF and lone CR line endings to LF.
func NormaliseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

var (
	// pageMarker matches a [page N] marker on its own line.
	pageMarker = regexp.MustCompile(`(?i)^\[page\s+([^\]\s]+)\]$`)

	inlinePageMarker = regexp.MustCompile(`(?i)\[page\s+([^\]\s]+)\]`)
)

// IsolatePageMarkers moves every [page N] marker onto a line of its own so
// markers embedded in running text are still recognised.
func IsolatePageMarkers(s string) string {
	return inlinePageMarker.ReplaceAllString(s, "\n[page $1]\n")
}

// ParsePageMarker returns the page label when line is a [page N] marker.
func ParsePageMarker(line string) (string, bool) {
	m := pageMarker.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}
