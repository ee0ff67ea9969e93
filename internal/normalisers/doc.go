// Package normalisers turns source documents into position-marked text
// segments. Each subpackage handles one input shape: plain text with page
// markers, Markdown with headings and tables, and DOCX via conversion to
// Markdown.
//
// Shared cleanup lives here so every normaliser produces the same
// whitespace layout for the chunker.
package normalisers
