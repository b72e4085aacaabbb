package apply

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// putNewEdge is the central primitive of the apply engine (spec.md §4.2,
// "put_newedge contract"). It resolves From/To to concrete vertices
// (splitting blocks as needed), writes the symmetric edge pair, and — when
// the new edge is DELETED — collects any now-unreachable "zombie"
// vertices downstream of the target so later context repair can decide
// whether they need a pseudo-edge to stay connected.
func putNewEdge(ws *Workspace, txn store.Txn, changeId pristine.ChangeId, e NewEdge) error {
	if e.Previous&pristine.EdgeParent != 0 || e.Flag&pristine.EdgeParent != 0 {
		return &pristine.InvalidChangeError{Reason: "PARENT bit must never appear in an atom's own flags"}
	}
	if err := checkValidFlagTransition(e.Previous, e.Flag); err != nil {
		return err
	}

	src, err := resolveUp(txn, e.From)
	if err != nil {
		return err
	}
	tgt, err := resolveDown(txn, e.To)
	if err != nil {
		return err
	}

	flags := e.Flag
	edge := pristine.Edge{Source: src, Target: tgt, Flags: flags, IntroducedBy: changeId}
	graph.PutEdge(txn, edge)
	ws.touched = append(ws.touched, src, tgt)

	if flags.Has(pristine.EdgeDeleted) {
		collectNondeletedZombies(ws, txn, tgt)
		if flags.Has(pristine.EdgeFolder) {
			ws.touchedFolders = append(ws.touchedFolders, tgt)
		} else {
			reconnectPseudoEdges(txn, tgt)
		}
	}
	return nil
}

// checkValidFlagTransition enforces spec.md §4.2's put_newedge step 2:
// BLOCK may only drop together with BLOCK (a BLOCK edge can't silently
// lose its BLOCK bit while being rewritten), and FOLDER must be preserved
// across the transition (an edge never crosses the tree/content
// boundary).
func checkValidFlagTransition(previous, flag pristine.EdgeFlags) error {
	if previous.Has(pristine.EdgeBlock) && !flag.Has(pristine.EdgeBlock) {
		return &pristine.InvalidChangeError{Reason: "BLOCK dropped without the new flag also carrying BLOCK"}
	}
	if previous.Has(pristine.EdgeFolder) != flag.Has(pristine.EdgeFolder) {
		return &pristine.InvalidChangeError{Reason: "FOLDER must be preserved across an edge's previous/flag transition"}
	}
	return nil
}

// reconnectPseudoEdges implements spec.md §4.2's put_newedge step 4b: when
// a non-FOLDER edge into tgt is deleted, every remaining live parent of
// tgt is wired to every remaining live child of tgt with a PSEUDO edge,
// so the alive subgraph stays connected through tgt's former position
// (grounded in the original implementation's collect_pseudo_edges /
// reconnect_pseudo_edges in apply/edge.rs, simplified here to connect
// every retained parent/child pair directly rather than first pruning
// redundant ancestors/descendants).
func reconnectPseudoEdges(txn store.Txn, tgt pristine.Vertex) {
	if tgt.IsRoot() {
		return
	}
	var parents, children []pristine.Vertex
	for _, p := range graph.ReverseEdges(txn, tgt) {
		if p.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		parents = append(parents, p.Source)
	}
	for _, c := range graph.ForwardEdges(txn, tgt) {
		if c.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		children = append(children, c.Target)
	}
	for _, p := range parents {
		for _, c := range children {
			if p == c {
				continue
			}
			graph.PutEdge(txn, pristine.Edge{
				Source:       p,
				Target:       c,
				Flags:        pristine.EdgePseudo,
				IntroducedBy: pristine.RootChangeId,
			})
		}
	}
}

// collectNondeletedZombies walks the forward edges of v; any child that
// still has a live (non-DELETED) incoming edge from somewhere else stays
// alive, but a child whose only remaining incoming edges are all DELETED
// becomes a zombie: alive in the sense that it is still reachable, but
// with no non-deleted parent. These are recorded on the Workspace so the
// context-repair pass can reconnect them with a PSEUDO edge rather than
// leave the alive subgraph disconnected (spec.md P5).
func collectNondeletedZombies(ws *Workspace, txn store.Txn, v pristine.Vertex) {
	for _, child := range graph.ForwardEdges(txn, v) {
		if child.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		if !graph.IsAlive(txn, child.Target) {
			ws.zombies = append(ws.zombies, child.Target)
		}
	}
}
