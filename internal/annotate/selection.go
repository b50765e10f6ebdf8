package annotate

import (
	"strings"
	"time"
)

const (
	// GraceWindow bounds how long a submitted selection stays highlighted
	// while waiting for its thread to show up in the highlight index.
	GraceWindow = 5 * time.Second

	blockClip = 100
	totalClip = 200
)

// State is the phase of the selection state machine.
type State int

const (
	Idle State = iota
	Dragging
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Range is an inclusive block index range.
type Range struct {
	Start int
	End   int
}

// FinalSelection is a committed selection, frozen by value when the drag
// ended. Generation identifies which commit produced it.
type FinalSelection struct {
	StartBlockIndex int
	EndBlockIndex   int
	StartLine       int
	EndLine         int
	BlockContent    string
	Generation      uint64
}

// BlockLookup resolves block indices of the current render generation.
type BlockLookup interface {
	BlockByIndex(index int) (Block, bool)
}

// ExactMatcher reports whether a thread spans exactly the given lines.
type ExactMatcher interface {
	HasExact(startLine, endLine int) bool
}

type pendingClear struct {
	generation uint64
	deadline   time.Time
}

// Selection owns the drag-to-select gesture and the committed selection
// waiting for a comment body.
type Selection struct {
	state      State
	anchor     int
	focus      int
	final      FinalSelection
	generation uint64
	pending    *pendingClear
}

func (s *Selection) State() State {
	return s.state
}

// Start begins a drag on block index. It is ignored while a drag is already
// in progress and discards any committed selection otherwise.
func (s *Selection) Start(index int) bool {
	if s.state == Dragging {
		return false
	}
	s.clear()
	s.state = Dragging
	s.anchor = index
	s.focus = index
	return true
}

// Extend moves the drag focus to index.
func (s *Selection) Extend(index int) bool {
	if s.state != Dragging || index == s.focus {
		return false
	}
	s.focus = index
	return true
}

// ExtendAt hit-tests row against layout and extends the drag to whatever
// block sits there. Rows between blocks leave the focus unchanged.
func (s *Selection) ExtendAt(layout *Layout, row int) bool {
	if s.state != Dragging {
		return false
	}
	index, ok := layout.BlockAt(row)
	if !ok {
		return false
	}
	return s.Extend(index)
}

// Range returns the in-progress drag range. It is defined only while
// dragging.
func (s *Selection) Range() (Range, bool) {
	if s.state != Dragging {
		return Range{}, false
	}
	return Range{Start: min(s.anchor, s.focus), End: max(s.anchor, s.focus)}, true
}

// Commit ends the drag. When either end of the range no longer resolves the
// selection collapses to Idle and Commit reports false.
func (s *Selection) Commit(blocks BlockLookup) bool {
	r, ok := s.Range()
	if !ok {
		return false
	}

	startBlock, okStart := blocks.BlockByIndex(r.Start)
	endBlock, okEnd := blocks.BlockByIndex(r.End)
	if !okStart || !okEnd {
		s.clear()
		return false
	}

	parts := make([]string, 0, r.End-r.Start+1)
	for i := r.Start; i <= r.End; i++ {
		block, ok := blocks.BlockByIndex(i)
		if !ok {
			continue
		}
		parts = append(parts, clip(block.Text, blockClip))
	}

	s.commit(FinalSelection{
		StartBlockIndex: r.Start,
		EndBlockIndex:   r.End,
		StartLine:       startBlock.StartLine,
		EndLine:         endBlock.EndLine,
		BlockContent:    clip(strings.Join(parts, "\n"), totalClip),
	})
	return true
}

// DirectAdd commits a single block without a drag gesture.
func (s *Selection) DirectAdd(blocks BlockLookup, index int) bool {
	block, ok := blocks.BlockByIndex(index)
	if !ok {
		s.clear()
		return false
	}
	s.clear()
	s.commit(FinalSelection{
		StartBlockIndex: index,
		EndBlockIndex:   index,
		StartLine:       block.StartLine,
		EndLine:         block.EndLine,
		BlockContent:    clip(block.Text, totalClip),
	})
	return true
}

// Cancel returns to Idle unconditionally. It reports whether anything was
// discarded.
func (s *Selection) Cancel() bool {
	if s.state == Idle {
		return false
	}
	s.clear()
	return true
}

// Final returns the committed selection.
func (s *Selection) Final() (FinalSelection, bool) {
	if s.state != Committed {
		return FinalSelection{}, false
	}
	return s.final, true
}

// Pending reports whether the committed selection has been submitted and is
// waiting to be cleared.
func (s *Selection) Pending() bool {
	return s.state == Committed && s.pending != nil
}

// MarkSubmitted arms the auto-expire timer for final. It is a no-op when
// final is not the selection currently committed.
func (s *Selection) MarkSubmitted(final FinalSelection, now time.Time) bool {
	if s.state != Committed || s.final.Generation != final.Generation {
		return false
	}
	s.pending = &pendingClear{generation: final.Generation, deadline: now.Add(GraceWindow)}
	return true
}

// Expire clears a submitted selection once its thread appears in threads or
// the grace window has elapsed.
func (s *Selection) Expire(now time.Time, threads ExactMatcher) bool {
	if !s.Pending() {
		return false
	}
	if threads != nil && threads.HasExact(s.final.StartLine, s.final.EndLine) {
		s.clear()
		return true
	}
	if !now.Before(s.pending.deadline) {
		s.clear()
		return true
	}
	return false
}

// Deadline returns when a pending selection will be cleared regardless.
func (s *Selection) Deadline() (time.Time, bool) {
	if !s.Pending() {
		return time.Time{}, false
	}
	return s.pending.deadline, true
}

func (s *Selection) commit(final FinalSelection) {
	s.generation++
	final.Generation = s.generation
	s.final = final
	s.state = Committed
	s.pending = nil
}

func (s *Selection) clear() {
	s.state = Idle
	s.anchor = 0
	s.focus = 0
	s.final = FinalSelection{}
	s.pending = nil
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
