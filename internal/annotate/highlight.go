package annotate

import (
	"slices"
	"strconv"
	"strings"
)

// ThreadSpan is the part of a persisted thread the highlight index needs.
type ThreadSpan struct {
	ID        string
	StartLine int
	EndLine   int
	Resolved  bool
}

// HighlightIndex maps source lines to the threads anchored on them.
type HighlightIndex struct {
	byLine      map[int][]string
	exact       map[string]struct{}
	fingerprint string
}

func NewHighlightIndex(threads []ThreadSpan) *HighlightIndex {
	idx := &HighlightIndex{}
	idx.Rebuild(threads)
	return idx
}

// Rebuild recomputes the index. It returns false without doing any work when
// the spans are identical to the ones the index was last built from.
func (h *HighlightIndex) Rebuild(threads []ThreadSpan) bool {
	fp := fingerprint(threads)
	if h.byLine != nil && fp == h.fingerprint {
		return false
	}

	byLine := make(map[int][]string)
	exact := make(map[string]struct{}, len(threads))
	for _, t := range threads {
		for line := t.StartLine; line <= t.EndLine; line++ {
			byLine[line] = append(byLine[line], t.ID)
		}
		exact[blockKey(t.StartLine, t.EndLine)] = struct{}{}
	}

	h.byLine = byLine
	h.exact = exact
	h.fingerprint = fp
	return true
}

// ThreadsForLine returns the thread ids anchored on line, possibly none.
func (h *HighlightIndex) ThreadsForLine(line int) []string {
	ids := h.byLine[line]
	if len(ids) == 0 {
		return []string{}
	}
	return slices.Clone(ids)
}

// ThreadsForRange returns the de-duplicated thread ids touching any line in
// [start, end], in first-seen order walking the range top to bottom.
func (h *HighlightIndex) ThreadsForRange(start, end int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for line := start; line <= end; line++ {
		for _, id := range h.byLine[line] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// HasThread reports whether any thread intersects [start, end].
func (h *HighlightIndex) HasThread(start, end int) bool {
	for line := start; line <= end; line++ {
		if len(h.byLine[line]) > 0 {
			return true
		}
	}
	return false
}

// IsActive reports whether activeID is among the threads touching [start, end].
func (h *HighlightIndex) IsActive(start, end int, activeID string) bool {
	if activeID == "" {
		return false
	}
	return slices.Contains(h.ThreadsForRange(start, end), activeID)
}

// HasExact reports whether a thread spans exactly [start, end].
func (h *HighlightIndex) HasExact(start, end int) bool {
	_, ok := h.exact[blockKey(start, end)]
	return ok
}

func fingerprint(threads []ThreadSpan) string {
	var b strings.Builder
	for _, t := range threads {
		b.WriteString(t.ID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(t.StartLine))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(t.EndLine))
		b.WriteByte(';')
	}
	return b.String()
}
