package output

import (
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

// ConflictKind discriminates the structured report Output returns for a
// working-copy condition that could not be resolved silently.
type ConflictKind int

const (
	// ConflictName: two sibling entries in the same directory claim the
	// same basename and OutputNameConflicts was false, so only the first
	// (by ChangeId) was written.
	ConflictName ConflictKind = iota
	// ConflictZombieFile: the file's position is alive only through a
	// pseudo-edge repair (spec.md's "zombie"), not a real parent; the file
	// was still output, but flagged.
	ConflictZombieFile
	// ConflictMultipleNames: the same graph position was reached under two
	// different names while walking the same output pass (a true folder
	// cycle or duplicate FOLDER edge).
	ConflictMultipleNames
	// ConflictZombie: a rendered file's own body contains a zombie
	// conflict marker (render.VertexBuffer's BeginZombieConflict fired).
	ConflictZombie
	// ConflictCyclic: a rendered file's body contains a cyclic conflict
	// (an SCC of size > 1).
	ConflictCyclic
	// ConflictOrder: a rendered file's body contains an ordinary
	// (non-cyclic) fork that could not be linearized.
	ConflictOrder
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictName:
		return "name"
	case ConflictZombieFile:
		return "zombie-file"
	case ConflictMultipleNames:
		return "multiple-names"
	case ConflictZombie:
		return "zombie"
	case ConflictCyclic:
		return "cyclic"
	case ConflictOrder:
		return "order"
	default:
		return "unknown"
	}
}

// Conflict reports one condition Output could not resolve on its own,
// mirroring spec.md's Conflict enum (Name, ZombieFile, MultipleNames,
// Zombie, Cyclic, Order).
type Conflict struct {
	Kind ConflictKind
	Path string
	Pos  pristine.Position
	Line int
}

// OutputItem is one entry Output is about to reconcile against the
// working copy: the graph position that names it, the inode of its parent
// directory, its metadata, and whether its aliveness rests only on a
// pseudo-edge repair.
type OutputItem struct {
	Pos      pristine.Position
	Parent   pristine.Inode
	Meta     workingcopy.Metadata
	Path     string
	IsZombie bool
}

// candidate is one FOLDER child discovered under a directory, still
// carrying the name-vertex it was reached through (for tie-breaking and
// conflict naming) alongside the OutputItem it will become.
type candidate struct {
	name pristine.Vertex
	item OutputItem
}
