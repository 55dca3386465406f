package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// generatedHeader marks files (or sections) produced by this generator.
const generatedHeader = "<!-- Code generated by gendocs. DO NOT EDIT. -->"

// MarkdownWriter accumulates a markdown document block by block. Blocks are
// separated by a single blank line.
type MarkdownWriter struct {
	buf bytes.Buffer
}

// NewMarkdownWriter returns an empty writer.
func NewMarkdownWriter() *MarkdownWriter {
	return &MarkdownWriter{}
}

func (w *MarkdownWriter) block(s string) {
	if w.buf.Len() > 0 {
		w.buf.WriteString("\n")
	}
	w.buf.WriteString(strings.TrimRight(s, "\n"))
	w.buf.WriteString("\n")
}

// Frontmatter writes a YAML front matter block with a title and description.
func (w *MarkdownWriter) Frontmatter(title, description string) {
	_, _ = fmt.Fprintf(&w.buf, "---\ntitle: %q\ndescription: %q\n---\n", title, description)
}

// GeneratedMarker writes the generated-file marker.
func (w *MarkdownWriter) GeneratedMarker() {
	w.block(generatedHeader)
}

// Header writes an ATX header.
func (w *MarkdownWriter) Header(level int, text string) {
	w.block(strings.Repeat("#", level) + " " + text)
}

// Paragraph writes a paragraph.
func (w *MarkdownWriter) Paragraph(text string) {
	w.block(strings.TrimSpace(text))
}

// Text writes raw markdown.
func (w *MarkdownWriter) Text(text string) {
	w.block(text)
}

// CodeBlock writes a fenced code block.
func (w *MarkdownWriter) CodeBlock(lang, code string) {
	w.block("```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```")
}

// BulletList writes one bullet per item.
func (w *MarkdownWriter) BulletList(items []string) {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	w.block(strings.Join(lines, "\n"))
}

// Table writes a markdown table.
func (w *MarkdownWriter) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	h := make(table.Row, len(headers))
	for i, col := range headers {
		h[i] = col
	}
	t.AppendHeader(h)
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}
	w.block(t.RenderMarkdown())
}

// Bytes returns the document.
func (w *MarkdownWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// String returns the document.
func (w *MarkdownWriter) String() string {
	return w.buf.String()
}

// InlineCode wraps s in backticks.
func InlineCode(s string) string {
	return "`" + s + "`"
}

// cleanDescription flattens a description onto one line and escapes table pipes.
func cleanDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
