package render

import (
	"bytes"
	"fmt"

	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// TextBuffer is the default VertexBuffer implementation: it assembles
// plain text with bracketing marker lines around conflicts, in the spirit
// of the original's output_conflict_marker (spec.md §9, "the exact marker
// text is not semantic; round-trip is guaranteed only through the
// VertexBuffer interface").
type TextBuffer struct {
	buf        bytes.Buffer
	MissingEOL map[int]bool
	nextID     int
}

func NewTextBuffer() *TextBuffer {
	return &TextBuffer{MissingEOL: make(map[int]bool)}
}

func (b *TextBuffer) Bytes() []byte { return b.buf.Bytes() }

func (b *TextBuffer) OutputLine(v pristine.Vertex, contents ContentsResolver) error {
	chunk := make([]byte, v.Len())
	n, err := contents(v, chunk)
	if err != nil {
		return err
	}
	b.buf.Write(chunk[:n])
	return nil
}

func (b *TextBuffer) BeginConflict(id int, sides []pristine.Hash) {
	fmt.Fprintf(&b.buf, "<<<<<<< %d\n", id)
}

func (b *TextBuffer) ConflictNext(id int, side pristine.Hash) {
	fmt.Fprintf(&b.buf, "======= %d\n", id)
}

func (b *TextBuffer) EndConflict(id int) {
	fmt.Fprintf(&b.buf, ">>>>>>> %d\n", id)
}

func (b *TextBuffer) BeginCyclicConflict(id int) {
	fmt.Fprintf(&b.buf, "<<<<<<< cycle %d\n", id)
}

func (b *TextBuffer) EndCyclicConflict(id int) {
	fmt.Fprintf(&b.buf, ">>>>>>> cycle %d\n", id)
}

func (b *TextBuffer) BeginZombieConflict(id int, sides []pristine.Hash) {
	fmt.Fprintf(&b.buf, "<<<<<<< zombie %d\n", id)
}

func (b *TextBuffer) EndZombieConflict(id int) {
	fmt.Fprintf(&b.buf, ">>>>>>> zombie %d\n", id)
}

// Render walks path, writing every alive vertex's contents through buf,
// wrapping cyclic SCCs in cyclic-conflict brackets and forks in ordinary
// conflict brackets with one ConflictNext per side boundary.
func Render(txn store.Txn, g *alive.Graph, sccOf []int, sccs [][]int, path alive.Path, resolver ContentsResolver, buf VertexBuffer) error {
	r := &renderer{txn: txn, g: g, sccOf: sccOf, sccs: sccs, resolver: resolver, buf: buf}
	return r.renderElements(path.Elements)
}

type renderer struct {
	txn      store.Txn
	g        *alive.Graph
	sccOf    []int
	sccs     [][]int
	resolver ContentsResolver
	buf      VertexBuffer
	nextID   int
}

func (r *renderer) renderElements(elems []alive.PathElement) error {
	for _, e := range elems {
		if e.Conflict != nil {
			if err := r.renderConflict(e.Conflict); err != nil {
				return err
			}
			continue
		}
		if err := r.renderSCC(e.SCC); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderSCC(sccID int) error {
	scc := r.sccs[sccID]
	cyclic := alive.IsCyclic(r.g, r.sccOf, r.sccs, sccID)
	var id int
	if cyclic {
		id = r.nextID
		r.nextID++
		r.buf.BeginCyclicConflict(id)
	}
	for _, vi := range scc {
		v := r.g.Lines[vi]
		if v.IsRoot() {
			continue
		}
		if err := r.buf.OutputLine(v, r.resolver); err != nil {
			return err
		}
	}
	if cyclic {
		r.buf.EndCyclicConflict(id)
	}
	return nil
}

func (r *renderer) renderConflict(c *alive.ConflictNode) error {
	id := r.nextID
	r.nextID++

	sides := make([]pristine.Hash, 0, len(c.Sides))
	for _, side := range c.Sides {
		sides = append(sides, r.sideHash(side))
	}
	r.buf.BeginConflict(id, sides)
	for i, side := range c.Sides {
		if i > 0 {
			r.buf.ConflictNext(id, sides[i])
		}
		if err := r.renderElements(side); err != nil {
			return err
		}
	}
	r.buf.EndConflict(id)
	return nil
}

// sideHash identifies a conflict side by the hash of the change that
// introduced its first SCC's first vertex, giving callers a stable token
// even though marker text itself carries no semantic meaning.
func (r *renderer) sideHash(side []alive.PathElement) pristine.Hash {
	for _, e := range side {
		if e.Conflict != nil {
			continue
		}
		scc := r.sccs[e.SCC]
		if len(scc) == 0 {
			continue
		}
		v := r.g.Lines[scc[0]]
		if h, ok := channel.HashOf(r.txn, v.Change); ok {
			return h
		}
	}
	return pristine.Hash{}
}
