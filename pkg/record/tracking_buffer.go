// Package record implements spec.md §4.4: turning the difference between
// a file's current alive content and the working copy's desired content
// into apply.NewVertex/apply.EdgeMap atoms a change can carry.
package record

import (
	"fmt"

	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/render"
)

// trackedLine is one rendered chunk of the file's current content, still
// tagged with the vertex it came from. marker lines (conflict bracket
// text) carry a zero Vertex and marker=true: they exist only so the
// line-level diff sees exactly what a prior checkout wrote to disk, never
// as something buildAtoms can build a graph operation against.
type trackedLine struct {
	vertex  pristine.Vertex
	content []byte
	marker  bool
}

// trackingBuffer is a render.VertexBuffer that records each rendered
// vertex instead of assembling a flat byte stream, so the diff stage can
// map a byte-level line diff back onto the vertices it must delete or
// attach new content around. Conflict bracket text is tracked too, using
// the exact same marker strings render.TextBuffer writes to a checked-out
// file (pkg/render/text.go): if the file on disk still carries an
// untouched conflict, the diff must see those marker lines as unchanged
// content, not as lines the user spontaneously inserted. Zombie conflict
// markers are tracked the same way even though nothing currently renders
// them (render.TextBuffer's BeginZombieConflict/EndZombieConflict have no
// caller yet) — if that wiring lands later, recording against a file that
// already has them will not silently corrupt the diff.
type trackingBuffer struct {
	lines []trackedLine
}

func (b *trackingBuffer) OutputLine(v pristine.Vertex, contents render.ContentsResolver) error {
	buf := make([]byte, v.Len())
	n, err := contents(v, buf)
	if err != nil {
		return err
	}
	b.lines = append(b.lines, trackedLine{vertex: v, content: buf[:n]})
	return nil
}

func (b *trackingBuffer) marker(text string) {
	b.lines = append(b.lines, trackedLine{content: []byte(text), marker: true})
}

func (b *trackingBuffer) BeginConflict(id int, sides []pristine.Hash) {
	b.marker(fmt.Sprintf("<<<<<<< %d\n", id))
}

func (b *trackingBuffer) ConflictNext(id int, side pristine.Hash) {
	b.marker(fmt.Sprintf("======= %d\n", id))
}

func (b *trackingBuffer) EndConflict(id int) {
	b.marker(fmt.Sprintf(">>>>>>> %d\n", id))
}

func (b *trackingBuffer) BeginCyclicConflict(id int) {
	b.marker(fmt.Sprintf("<<<<<<< cycle %d\n", id))
}

func (b *trackingBuffer) EndCyclicConflict(id int) {
	b.marker(fmt.Sprintf(">>>>>>> cycle %d\n", id))
}

func (b *trackingBuffer) BeginZombieConflict(id int, sides []pristine.Hash) {
	b.marker(fmt.Sprintf("<<<<<<< zombie %d\n", id))
}

func (b *trackingBuffer) EndZombieConflict(id int) {
	b.marker(fmt.Sprintf(">>>>>>> zombie %d\n", id))
}
