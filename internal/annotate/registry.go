package annotate

import "fmt"

// Block is one structural unit of a rendered document, addressed by its
// source line span (1-based, inclusive).
type Block struct {
	Index     int
	StartLine int
	EndLine   int
	Text      string
}

// Key returns the identity key used by the registry.
func (b Block) Key() string {
	return blockKey(b.StartLine, b.EndLine)
}

func blockKey(startLine, endLine int) string {
	return fmt.Sprintf("L%d-%d", startLine, endLine)
}

// Registry assigns sequential indices to blocks in render order. It must be
// Reset once at the start of every render pass so that identical content
// yields identical indices across passes.
type Registry struct {
	byKey  map[string]int
	blocks []Block
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]int)}
}

// Reset clears the key map and the counter.
func (r *Registry) Reset() {
	clear(r.byKey)
	r.blocks = r.blocks[:0]
}

// RegisterBlock returns the index for the span, allocating the next one on
// first sight of its key.
func (r *Registry) RegisterBlock(startLine, endLine int) int {
	key := blockKey(startLine, endLine)
	if index, ok := r.byKey[key]; ok {
		return index
	}
	index := len(r.blocks)
	r.byKey[key] = index
	r.blocks = append(r.blocks, Block{Index: index, StartLine: startLine, EndLine: endLine})
	return index
}

// RegisterContent registers the span and records the visible text used when
// a selection over it is committed.
func (r *Registry) RegisterContent(startLine, endLine int, text string) int {
	index := r.RegisterBlock(startLine, endLine)
	r.blocks[index].Text = text
	return index
}

// BlockByIndex looks up a block registered in the current generation.
func (r *Registry) BlockByIndex(index int) (Block, bool) {
	if index < 0 || index >= len(r.blocks) {
		return Block{}, false
	}
	return r.blocks[index], true
}

// Len reports how many blocks the current generation holds.
func (r *Registry) Len() int {
	return len(r.blocks)
}
