// Package apply implements spec.md §4.2: turning a Change's atoms into
// graph mutations. A Change is applied atom by atom inside a single write
// transaction; put_newedge is the central primitive every atom kind
// eventually calls, and is responsible for edge symmetry, vertex
// resolution/splitting, zombie collection, and folder-conflict pseudo-edge
// reconnection.
package apply

import "github.com/orneryd/pristine/pkg/pristine"

// EdgeTarget names the attachment point for one end of a new edge: a
// Position produced by some earlier change, tagged with the flags the new
// edge should carry relative to it (e.g. FOLDER for tree edges).
type EdgeTarget struct {
	Position pristine.Position
	Flags    pristine.EdgeFlags
}

// NewVertex is the "pure insertion" atom (spec.md §4.4): it introduces a
// fresh vertex spanning [Start,End) in the applying change's own contents,
// attached below every position in Up and above every position in Down.
type NewVertex struct {
	Start ChangePosRange
	Up    []EdgeTarget
	Down  []EdgeTarget
	Flags pristine.EdgeFlags
}

// ChangePosRange is the byte range a NewVertex occupies within the
// applying change's contents blob.
type ChangePosRange struct {
	Start pristine.ChangePosition
	End   pristine.ChangePosition
}

// NewEdge is a single edge-level operation inside an EdgeMap atom: set (or
// clear) Flag on the edge from From to To, asserting the edge previously
// carried exactly Previous. EdgeMap atoms are how pure deletions (DELETED
// set on existing edges) and conflict-reordering/zombie-resurrection
// (DELETED cleared) are expressed (spec.md §4.4).
type NewEdge struct {
	From     pristine.Position
	To       pristine.Position
	Previous pristine.EdgeFlags
	Flag     pristine.EdgeFlags
}

// EdgeMap is the "pure deletion / edge rewrite" atom.
type EdgeMap struct {
	Edges []NewEdge
}

// Replacement pairs a same-line deletion with the insertion that replaced
// it (spec.md §4.4): recording a line edit emits the deletion first, then
// the insertion, and merges the two into a Replacement when they land at
// the same line so unrecord can undo them as a single unit instead of
// independently reintroducing half an edit.
type Replacement struct {
	Deletion  EdgeMap
	Insertion NewVertex
}

// Atom is implemented by NewVertex, EdgeMap, and Replacement.
type Atom interface{ isAtom() }

func (NewVertex) isAtom()   {}
func (EdgeMap) isAtom()     {}
func (Replacement) isAtom() {}

// Change is a full recorded unit: its dependencies (other changes whose
// effects it assumes), its ordered atoms, and the raw bytes it
// introduces. Every NewVertex atom's Start/End range indexes into
// Contents; Contents is otherwise opaque to the apply engine, which never
// reads byte payloads, only ranges.
type Change struct {
	Hash         pristine.Hash
	Dependencies []pristine.Hash
	Atoms        []Atom
	Contents     []byte
}
