package annotate

import "sort"

type rowSpan struct {
	top, bottom int
	block       int
}

// Layout records which rendered rows each block occupies and answers
// "which block is under this row" for pointer hit-testing. Spans are added
// top to bottom during a render pass and never overlap.
type Layout struct {
	spans []rowSpan
}

func (l *Layout) Reset() {
	l.spans = l.spans[:0]
}

// Add records that blockIndex occupies rows [top, bottom].
func (l *Layout) Add(blockIndex, top, bottom int) {
	if bottom < top {
		return
	}
	l.spans = append(l.spans, rowSpan{top: top, bottom: bottom, block: blockIndex})
}

// BlockAt returns the block rendered on row.
func (l *Layout) BlockAt(row int) (int, bool) {
	i := sort.Search(len(l.spans), func(i int) bool {
		return l.spans[i].bottom >= row
	})
	if i == len(l.spans) || l.spans[i].top > row {
		return 0, false
	}
	return l.spans[i].block, true
}

// Rows returns the row span of blockIndex.
func (l *Layout) Rows(blockIndex int) (top, bottom int, ok bool) {
	for _, s := range l.spans {
		if s.block == blockIndex {
			return s.top, s.bottom, true
		}
	}
	return 0, 0, false
}

// Height is the number of rows covered, counting from row zero.
func (l *Layout) Height() int {
	if len(l.spans) == 0 {
		return 0
	}
	return l.spans[len(l.spans)-1].bottom + 1
}
