// Package pristine defines the core data model of the graph engine: the
// identifiers, vertices, and edges that every other package in this module
// operates on. Nothing in this package touches storage; it is the shared
// vocabulary that pkg/store, pkg/graph, pkg/apply, pkg/alive, and pkg/record
// all import.
package pristine

import (
	"encoding/binary"
	"fmt"
)

// ChangeId is a dense, process-local identifier for a change once it has
// been applied to a channel. It is cheap to compare and sort but is not
// stable across repositories; Hash is. The internal/external tables
// (pkg/channel) maintain the bijection between the two.
type ChangeId uint64

// RootChangeId is the ChangeId reserved for the single ROOT vertex that
// exists in every pristine before any change is applied.
const RootChangeId ChangeId = 0

// ChangePosition is a byte offset into the contents blob owned by a single
// change. Combined with a ChangeId it addresses a byte within that change's
// serialized line contents.
type ChangePosition uint64

// Position pairs a ChangeId with a ChangePosition, giving a global address
// for a single byte produced by some change.
type Position struct {
	Change ChangeId
	Pos    ChangePosition
}

func (p Position) String() string {
	return fmt.Sprintf("%d.%d", p.Change, p.Pos)
}

// Vertex is a half-open byte range [Start, End) within the contents
// introduced by a single change. It is the atomic unit of "a line" (or a
// run of lines) in the pristine graph.
type Vertex struct {
	Change ChangeId
	Start  ChangePosition
	End    ChangePosition
}

// Len returns the number of bytes covered by the vertex.
func (v Vertex) Len() uint64 {
	return uint64(v.End) - uint64(v.Start)
}

// StartPos returns the Position of the first byte in the vertex.
func (v Vertex) StartPos() Position {
	return Position{Change: v.Change, Pos: v.Start}
}

// EndPos returns the Position one past the last byte in the vertex.
func (v Vertex) EndPos() Position {
	return Position{Change: v.Change, Pos: v.End}
}

// Contains reports whether pos falls within the vertex's half-open range.
func (v Vertex) Contains(pos ChangePosition) bool {
	return pos >= v.Start && pos < v.End
}

// RootVertex is the single, always-alive vertex every graph starts from.
var RootVertex = Vertex{Change: RootChangeId, Start: 0, End: 0}

func (v Vertex) IsRoot() bool {
	return v == RootVertex
}

// EdgeFlags is a bitset describing an edge's kind and status. The forward
// and reverse copies of an edge always carry flags that differ by exactly
// the PARENT bit (edge symmetry, P1 in spec.md §8.1).
type EdgeFlags uint8

const (
	// EdgeBlock marks a "normal" sequential edge between two vertices
	// produced in the same insertion.
	EdgeBlock EdgeFlags = 1 << iota
	// EdgePseudo marks an edge synthesized by the engine to keep the
	// alive subgraph connected; never part of any recorded change.
	EdgePseudo
	// EdgeFolder marks an edge within the folder (tree) subgraph rather
	// than the file-contents subgraph.
	EdgeFolder
	// EdgeParent marks the reverse copy of an edge (child -> parent
	// direction); its forward counterpart omits this bit.
	EdgeParent
	// EdgeDeleted marks an edge whose target vertex has been deleted by
	// some change; the vertex remains in the graph as a tombstone.
	EdgeDeleted
)

func (f EdgeFlags) Has(bit EdgeFlags) bool { return f&bit != 0 }

// Reverse returns the flags the opposite-direction copy of this edge must
// carry: identical except the PARENT bit is toggled.
func (f EdgeFlags) Reverse() EdgeFlags { return f ^ EdgeParent }

func (f EdgeFlags) String() string {
	s := ""
	if f.Has(EdgeBlock) {
		s += "BLOCK|"
	}
	if f.Has(EdgePseudo) {
		s += "PSEUDO|"
	}
	if f.Has(EdgeFolder) {
		s += "FOLDER|"
	}
	if f.Has(EdgeParent) {
		s += "PARENT|"
	}
	if f.Has(EdgeDeleted) {
		s += "DELETED|"
	}
	if s == "" {
		return "NONE"
	}
	return s[:len(s)-1]
}

// Edge is a single directed arc in the graph table. Every edge stored has a
// symmetric counterpart stored under the target vertex's key with Flags
// XOR PARENT (see pkg/graph.PutEdge).
type Edge struct {
	Source      Vertex
	Target      Vertex
	Flags       EdgeFlags
	IntroducedBy ChangeId
}

// IsAlive reports whether an edge keeps its target vertex alive: a
// non-PSEUDO, non-DELETED edge does; see spec.md's GLOSSARY definition of
// "Alive".
func (e Edge) IsAlive() bool {
	return !e.Flags.Has(EdgeDeleted) && !e.Flags.Has(EdgePseudo)
}

// Inode identifies a file or directory in the working-copy tree namespace,
// independent of the content graph. Inode 1 is the repository root.
type Inode uint64

const RootInode Inode = 1

// Hash is a content digest stable across repositories: two clones that
// apply the same change compute the same Hash for it. See hash.go.
type Hash [32]byte

func (h Hash) IsZero() bool { return h == Hash{} }

// Merkle is a rolling per-channel state digest: each applied change folds
// its Hash into the channel's running Merkle state (pkg/channel).
type Merkle [32]byte

// EncodeUint64 is the fixed big-endian encoding used for every
// sortable-key component derived from a ChangeId/ChangePosition/Inode.
// Centralized here so pkg/store's key builders never hand-roll byte order.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func DecodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
