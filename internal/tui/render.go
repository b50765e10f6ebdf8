package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"mdreview/api/internal/annotate"
)

// document is the parsed review content plus a cache of rendered blocks for
// the current width.
type document struct {
	lines  []string
	blocks []annotate.SourceBlock

	width    int
	renderer *glamour.TermRenderer
	cache    map[int][]string
}

func newDocument(content string) *document {
	return &document{
		lines:  strings.Split(content, "\n"),
		blocks: annotate.ExtractBlocks([]byte(content)),
		cache:  make(map[int][]string),
	}
}

// source returns the raw markdown of lines [start, end].
func (d *document) source(start, end int) string {
	if start < 1 || start > len(d.lines) {
		return ""
	}
	end = min(end, len(d.lines))
	return strings.Join(d.lines[start-1:end], "\n")
}

func (d *document) setWidth(width int) {
	if width == d.width && d.renderer != nil {
		return
	}
	d.width = width
	d.cache = make(map[int][]string)
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		d.renderer = nil
		return
	}
	d.renderer = r
}

// rendered returns the display rows for block i. Code lines render as a
// single styled row so each one stays individually addressable.
func (d *document) rendered(i int) []string {
	if rows, ok := d.cache[i]; ok {
		return rows
	}
	b := d.blocks[i]

	var rows []string
	if b.Code {
		rows = []string{codeLineStyle.Width(max(d.width, 1)).Render(expandTabs(b.Text))}
	} else {
		rows = d.renderMarkdown(d.source(b.StartLine, b.EndLine))
	}
	if len(rows) == 0 {
		rows = []string{""}
	}
	d.cache[i] = rows
	return rows
}

func (d *document) renderMarkdown(src string) []string {
	if d.renderer == nil {
		return strings.Split(lipgloss.NewStyle().Width(max(d.width, 1)).Render(src), "\n")
	}
	out, err := d.renderer.Render(src)
	if err != nil {
		return strings.Split(src, "\n")
	}
	return trimBlankRows(strings.Split(out, "\n"))
}

func trimBlankRows(rows []string) []string {
	start, end := 0, len(rows)
	for start < end && strings.TrimSpace(rows[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(rows[end-1]) == "" {
		end--
	}
	return rows[start:end]
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// renderPass rebuilds the registry and layout from scratch and returns the document
// rows with gutter markers. Every block is registered in source order, and
// ExtractBlocks never yields two blocks with the same line range, so block
// indices match positions in doc.blocks.
func (m *Model) renderPass() []string {
	m.registry.Reset()
	m.layout.Reset()
	m.doc.setWidth(m.contentWidth())

	drag, dragging := m.selection.Range()
	final, committed := m.selection.Final()
	pending := m.selection.Pending()

	rows := make([]string, 0, len(m.doc.blocks)*2)
	for i, b := range m.doc.blocks {
		idx := m.registry.RegisterContent(b.StartLine, b.EndLine, b.Text)

		marker := gutterBlank
		style := helpStyle
		switch {
		case dragging && idx >= drag.Start && idx <= drag.End:
			marker, style = gutterBar, dragStyle
		case committed && idx >= final.StartBlockIndex && idx <= final.EndBlockIndex:
			marker, style = gutterBar, committedStyle
			if pending {
				style = pendingStyle
			}
		case m.highlights.IsActive(b.StartLine, b.EndLine, m.activeThread):
			marker, style = gutterBar, activeStyle
		case m.highlights.HasThread(b.StartLine, b.EndLine):
			marker, style = gutterBar, threadStyle
			if m.allResolved(b.StartLine, b.EndLine) {
				style = resolvedStyle
			}
		}

		cursor := gutterBlank
		if idx == m.cursor {
			cursor = cursorStyle.Render(gutterCursor)
		}

		top := len(rows)
		for _, line := range m.doc.rendered(i) {
			rows = append(rows, cursor+style.Render(marker)+gutterBlank+line)
		}
		m.layout.Add(idx, top, len(rows)-1)

		if !b.Code || i+1 >= len(m.doc.blocks) || !m.doc.blocks[i+1].Code {
			rows = append(rows, "")
		}
	}
	return rows
}
