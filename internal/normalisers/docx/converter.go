// Package docx converts Word documents to Markdown for the markdown
// normaliser.
//
// Heading styles become ATX headings, list paragraphs become "- " bullets,
// fully bold paragraphs become "**bold**" headings, and tables become pipe
// tables. Explicit page breaks are emitted as "[page N]" lines.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.DocumentConverter = (*Converter)(nil)

const documentPart = "word/document.xml"

// Converter renders DOCX files as Markdown.
type Converter struct{}

// New creates a new DOCX converter.
func New() *Converter {
	return &Converter{}
}

// ToMarkdown reads the file at path and converts it.
func (c *Converter) ToMarkdown(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	return c.Convert(data)
}

// Convert renders DOCX bytes as Markdown.
func (c *Converter) Convert(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err)
	}

	content, err := readPart(reader, documentPart)
	if err != nil {
		return "", err
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, documentPart, err)
	}

	r := &renderer{page: 1}
	for i := range doc.Body.Blocks {
		r.block(&doc.Body.Blocks[i])
	}
	return strings.Join(r.out, "\n\n"), nil
}

// readPart returns the contents of one archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, name)
}

// documentXML represents the structure of word/document.xml. Blocks keeps
// paragraphs and tables in document order.
type documentXML struct {
	Body struct {
		Blocks []blockXML `xml:",any"`
	} `xml:"body"`
}

// blockXML is either a paragraph (w:p) or a table (w:tbl).
type blockXML struct {
	XMLName xml.Name
	Props   paragraphProps `xml:"pPr"`
	Runs    []runXML       `xml:"r"`
	Rows    []rowXML       `xml:"tr"`
}

type paragraphProps struct {
	Style struct {
		Val string `xml:"val,attr"`
	} `xml:"pStyle"`
	NumPr *struct{} `xml:"numPr"`
}

type runXML struct {
	Props struct {
		Bold *toggleXML `xml:"b"`
	} `xml:"rPr"`
	Content []runContent `xml:",any"`
}

// toggleXML is an OOXML on/off property; a missing val means on.
type toggleXML struct {
	Val string `xml:"val,attr"`
}

func (t *toggleXML) on() bool {
	if t == nil {
		return false
	}
	switch t.Val {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

// runContent is one of w:t, w:tab or w:br inside a run.
type runContent struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
	Type    string `xml:"type,attr"`
}

type rowXML struct {
	Cells []cellXML `xml:"tc"`
}

type cellXML struct {
	Paragraphs []blockXML `xml:"p"`
}

// renderer accumulates Markdown blocks and tracks page numbers.
type renderer struct {
	out  []string
	page int
}

func (r *renderer) block(b *blockXML) {
	switch b.XMLName.Local {
	case "p":
		r.paragraph(b)
	case "tbl":
		r.table(b)
	}
}

func (r *renderer) paragraph(p *blockXML) {
	parts := paragraphParts(p)
	for i, text := range parts {
		if i > 0 {
			r.page++
			r.out = append(r.out, "[page "+strconv.Itoa(r.page)+"]")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		r.out = append(r.out, decorate(p, text))
	}
}

func (r *renderer) table(t *blockXML) {
	var lines []string
	for i, row := range t.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			var texts []string
			for k := range cell.Paragraphs {
				if text := strings.TrimSpace(strings.Join(paragraphParts(&cell.Paragraphs[k]), " ")); text != "" {
					texts = append(texts, text)
				}
			}
			cells[j] = strings.ReplaceAll(strings.Join(texts, " "), "|", "/")
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			lines = append(lines, "|"+strings.Repeat(" --- |", len(cells)))
		}
	}
	if len(lines) > 0 {
		r.out = append(r.out, strings.Join(lines, "\n"))
	}
}

// paragraphParts returns the paragraph text split at explicit page breaks.
func paragraphParts(p *blockXML) []string {
	parts := []string{""}
	var b strings.Builder
	for _, run := range p.Runs {
		for _, c := range run.Content {
			switch c.XMLName.Local {
			case "t":
				b.WriteString(c.Text)
			case "tab":
				b.WriteString(" ")
			case "br", "cr":
				if c.Type == "page" {
					parts[len(parts)-1] = b.String()
					b.Reset()
					parts = append(parts, "")
					continue
				}
				b.WriteString("\n")
			}
		}
	}
	parts[len(parts)-1] = b.String()
	return parts
}

// decorate applies the Markdown form for the paragraph's style.
func decorate(p *blockXML, text string) string {
	if level := headingLevel(p.Props.Style.Val); level > 0 {
		return strings.Repeat("#", level) + " " + strings.ReplaceAll(text, "\n", " ")
	}
	if p.Props.NumPr != nil || strings.Contains(strings.ToLower(p.Props.Style.Val), "list") {
		return "- " + text
	}
	if allBold(p) && !strings.Contains(text, "\n") {
		return "**" + text + "**"
	}
	return text
}

// headingLevel maps Title and HeadingN styles to a level, or 0.
func headingLevel(style string) int {
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if lower == "title" {
		return 1
	}
	if !strings.HasPrefix(lower, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(lower, "heading"))
	if err != nil || level < 1 {
		return 1
	}
	return min(level, 6)
}

// allBold reports whether every run that carries text is bold.
func allBold(p *blockXML) bool {
	seen := false
	for _, run := range p.Runs {
		hasText := false
		for _, c := range run.Content {
			if c.XMLName.Local == "t" && strings.TrimSpace(c.Text) != "" {
				hasText = true
				break
			}
		}
		if !hasText {
			continue
		}
		if !run.Props.Bold.on() {
			return false
		}
		seen = true
	}
	return seen
}
