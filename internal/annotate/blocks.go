package annotate

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// SourceBlock is a commentable unit found in markdown source, before it has
// been registered for a render pass.
type SourceBlock struct {
	Kind      string
	StartLine int
	EndLine   int
	Text      string
	Code      bool
}

var blockParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// ExtractBlocks lists the top-level blocks of a markdown document in source
// order. Code blocks contribute one block per content line. Blocks that carry
// no source position, such as thematic breaks, are skipped. No two returned
// blocks share a line range, so a position in the result is also the block's
// registry index in a fresh render pass.
func ExtractBlocks(source []byte) []SourceBlock {
	doc := blockParser.Parse(text.NewReader(source))
	lines := newLineIndex(source)

	blocks := make([]SourceBlock, 0)
	seen := make(map[string]int)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			segments := n.Lines()
			for i := 0; i < segments.Len(); i++ {
				seg := segments.At(i)
				line := lines.lineOf(seg.Start)
				blocks = appendUnique(blocks, seen, SourceBlock{
					Kind:      n.Kind().String(),
					StartLine: line,
					EndLine:   line,
					Text:      strings.TrimRight(string(seg.Value(source)), "\r\n"),
					Code:      true,
				})
			}
		default:
			start, stop, ok := nodeExtent(n)
			if !ok {
				continue
			}
			block := SourceBlock{
				Kind:      n.Kind().String(),
				StartLine: lines.lineOf(start),
				EndLine:   lines.lineOf(max(stop-1, start)),
			}
			block.Text = visibleText(n, source)
			if block.Text == "" {
				block.Text = lines.slice(source, block.StartLine, block.EndLine)
			}
			blocks = appendUnique(blocks, seen, block)
		}
	}
	return blocks
}

// appendUnique folds b into an earlier block with the same line range.
func appendUnique(blocks []SourceBlock, seen map[string]int, b SourceBlock) []SourceBlock {
	key := blockKey(b.StartLine, b.EndLine)
	if i, ok := seen[key]; ok {
		if b.Text != "" {
			blocks[i].Text = strings.TrimSpace(blocks[i].Text + "\n" + b.Text)
		}
		return blocks
	}
	seen[key] = len(blocks)
	return append(blocks, b)
}

func nodeExtent(n ast.Node) (start, stop int, ok bool) {
	start, stop = -1, -1
	include := func(seg text.Segment) {
		if seg.Stop <= seg.Start {
			return
		}
		if start < 0 || seg.Start < start {
			start = seg.Start
		}
		if seg.Stop > stop {
			stop = seg.Stop
		}
	}
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Type() == ast.TypeBlock {
			segments := node.Lines()
			for i := 0; i < segments.Len(); i++ {
				include(segments.At(i))
			}
		}
		if t, isText := node.(*ast.Text); isText {
			include(t.Segment)
		}
		return ast.WalkContinue, nil
	})
	return start, stop, start >= 0
}

func visibleText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock && node != n && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if t, isText := node.(*ast.Text); isText {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

type lineIndex struct {
	starts []int
}

func newLineIndex(source []byte) lineIndex {
	starts := []int{0}
	for i, c := range source {
		if c == '\n' && i+1 < len(source) {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

// lineOf converts a byte offset into a 1-based line number.
func (l lineIndex) lineOf(offset int) int {
	return sort.SearchInts(l.starts, offset+1)
}

func (l lineIndex) slice(source []byte, startLine, endLine int) string {
	from := l.starts[startLine-1]
	to := len(source)
	if endLine < len(l.starts) {
		to = l.starts[endLine]
	}
	return strings.TrimSpace(string(source[from:to]))
}
