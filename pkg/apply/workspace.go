package apply

import (
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// Workspace accumulates the cross-atom bookkeeping a single Apply (or
// Unrecord) call needs once every atom has been written: vertices that
// lost their last live parent (zombies) and folder vertices touched by a
// DELETED FOLDER edge (candidates for the folder-conflict cleanup pass).
// It is the Go analogue of the original implementation's Workspace struct
// in missing_context.rs, trimmed to the fields this engine's repair
// passes actually consume.
type Workspace struct {
	zombies        []pristine.Vertex
	touchedFolders []pristine.Vertex
	// touched accumulates every vertex a put_newedge call resolved during
	// this pass, feeding the post-pass pseudo-edge GC and cyclic-path
	// repair sweeps (spec.md §4.2), which only need to re-examine vertices
	// actually visited rather than the whole graph.
	touched []pristine.Vertex
}

func (ws *Workspace) clear() {
	ws.zombies = ws.zombies[:0]
	ws.touchedFolders = ws.touchedFolders[:0]
	ws.touched = ws.touched[:0]
}

// NewWorkspace returns an empty Workspace for callers outside this
// package (pkg/unrecord) that need to drive the same post-pass repair
// sweeps Apply uses, via the exported wrappers below.
func NewWorkspace() *Workspace { return &Workspace{} }

// Touch records a vertex visited during an external mutation pass so
// CleanObsoletePseudoEdges/RepairCyclicPaths re-examine it.
func (ws *Workspace) Touch(v pristine.Vertex) { ws.touched = append(ws.touched, v) }

// TouchZombie records a vertex that lost its last live parent during an
// external mutation pass, for RepairMissingContext to reconnect.
func (ws *Workspace) TouchZombie(v pristine.Vertex) { ws.zombies = append(ws.zombies, v) }

// RepairMissingContext, CleanObsoletePseudoEdges and RepairCyclicPaths
// expose the lowercase apply-time repair passes to pkg/unrecord, which
// must run the same context/pseudo-edge/cyclic-path repairs after undoing
// a change's atoms (spec.md §4.5 steps 4 and 7).
func RepairMissingContext(txn store.Txn, changeId pristine.ChangeId, ws *Workspace) {
	repairMissingContext(txn, changeId, ws)
}

func CleanObsoletePseudoEdges(txn store.Txn, ws *Workspace) { cleanObsoletePseudoEdges(txn, ws) }

func RepairCyclicPaths(txn store.Txn, ws *Workspace) { repairCyclicPaths(txn, ws) }
