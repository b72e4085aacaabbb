package output

import (
	"bytes"

	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/render"
)

// reportingBuffer wraps a render.TextBuffer, additionally counting the
// rendered content lines (conflict marker lines are not counted) and turning each conflict bracket into a Conflict report tagged
// with the line it started at, matching spec.md's Cyclic/Zombie/Order
// report kinds.
type reportingBuffer struct {
	*render.TextBuffer
	path      string
	line      int
	conflicts []Conflict
}

func newReportingBuffer(path string) *reportingBuffer {
	return &reportingBuffer{TextBuffer: render.NewTextBuffer(), path: path}
}

func (b *reportingBuffer) OutputLine(v pristine.Vertex, contents render.ContentsResolver) error {
	before := len(b.Bytes())
	err := b.TextBuffer.OutputLine(v, contents)
	b.line += bytes.Count(b.Bytes()[before:], []byte("\n"))
	return err
}

func (b *reportingBuffer) BeginConflict(id int, sides []pristine.Hash) {
	b.conflicts = append(b.conflicts, Conflict{Kind: ConflictOrder, Path: b.path, Line: b.line})
	b.TextBuffer.BeginConflict(id, sides)
}

func (b *reportingBuffer) BeginCyclicConflict(id int) {
	b.conflicts = append(b.conflicts, Conflict{Kind: ConflictCyclic, Path: b.path, Line: b.line})
	b.TextBuffer.BeginCyclicConflict(id)
}

func (b *reportingBuffer) BeginZombieConflict(id int, sides []pristine.Hash) {
	b.conflicts = append(b.conflicts, Conflict{Kind: ConflictZombie, Path: b.path, Line: b.line})
	b.TextBuffer.BeginZombieConflict(id, sides)
}
