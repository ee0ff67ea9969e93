// Package markdown normalises Markdown, including the output of the DOCX
// converter.
//
// ATX headings ("# X") and whole-line bold headings ("**X**" for a section,
// "***Y***" for a subsection) become section markers and extend the heading
// trail. Pipe tables become table markers. "[page N]" lines become page
// markers. Heading lines are markers only and never appear in segment text.
package markdown

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	atxHeading     = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
	subsectionBold = regexp.MustCompile(`^\*\*\*([^*].*?)\*\*\*$`)
	sectionBold    = regexp.MustCompile(`^\*\*([^*].*?)\*\*$`)
	tableSeparator = regexp.MustCompile(`^\|?(\s*:?-{3,}:?\s*\|)+\s*:?-*:?\s*$`)
	links          = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	inlineCode     = regexp.MustCompile("`([^`]+)`")
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "markdown"
}

// Normalise splits content into segments at headings, tables and pages.
func (n *Normaliser) Normalise(_ context.Context, content []byte) (domain.ExtractedText, error) {
	p := &parser{marker: domain.PageMarker("1")}

	text := normalisers.NormaliseNewlines(strings.ToValidUTF8(string(content), "�"))
	text = normalisers.IsolatePageMarkers(text)
	for _, line := range strings.Split(text, "\n") {
		p.line(line)
	}
	p.flush()

	return p.out, nil
}

// parser is the line-at-a-time state of one Normalise call.
type parser struct {
	out     domain.ExtractedText
	marker  domain.Marker
	trail   []string
	buf     []string
	tables  int
	inTable bool
	resume  domain.Marker
}

func (p *parser) line(raw string) {
	line := strings.TrimSpace(raw)

	if label, ok := normalisers.ParsePageMarker(line); ok {
		p.endTable()
		p.flush()
		p.marker = domain.PageMarker(label)
		return
	}

	if level, title, ok := heading(line); ok {
		p.endTable()
		p.flush()
		if level-1 < len(p.trail) {
			p.trail = p.trail[:level-1]
		}
		p.trail = append(p.trail, title)
		p.marker = domain.Marker{Kind: domain.MarkerSection, Label: title}
		return
	}

	if strings.HasPrefix(line, "|") {
		if !p.inTable {
			p.flush()
			p.tables++
			p.inTable = true
			p.resume = p.marker
			p.marker = domain.Marker{Kind: domain.MarkerTable, Label: strconv.Itoa(p.tables)}
		}
		if tableSeparator.MatchString(line) {
			return
		}
		p.buf = append(p.buf, tableRow(line))
		return
	}

	if p.inTable {
		p.endTable()
	}
	p.buf = append(p.buf, inline(line))
}

// endTable closes an open table and returns to the marker in effect before it.
func (p *parser) endTable() {
	if !p.inTable {
		return
	}
	p.flush()
	p.inTable = false
	p.marker = p.resume
}

func (p *parser) flush() {
	body := normalisers.CleanText(strings.Join(p.buf, "\n"))
	p.buf = p.buf[:0]
	if body == "" {
		return
	}
	p.out.Segments = append(p.out.Segments, domain.Segment{
		Marker:   p.marker,
		Headings: slices.Clone(p.trail),
		Text:     body,
	})
}

// heading reports the level and title of a heading line.
func heading(line string) (int, string, bool) {
	if m := atxHeading.FindStringSubmatch(line); m != nil {
		return len(m[1]), inline(m[2]), true
	}
	if m := subsectionBold.FindStringSubmatch(line); m != nil && !strings.Contains(m[1], "*") {
		return 2, strings.TrimSpace(m[1]), true
	}
	if m := sectionBold.FindStringSubmatch(line); m != nil && !strings.Contains(m[1], "*") {
		return 1, strings.TrimSpace(m[1]), true
	}
	return 0, "", false
}

// tableRow drops the outer pipes and trims each cell.
func tableRow(line string) string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i, c := range cells {
		cells[i] = inline(strings.TrimSpace(c))
	}
	return strings.Join(cells, " | ")
}

// inline strips emphasis, code spans and link targets.
func inline(s string) string {
	s = links.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "***", "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}
