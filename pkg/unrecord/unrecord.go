// Package unrecord implements spec.md §4.5: the inverse of apply. A
// change's atoms are undone in reverse order inside a single write
// transaction; the whole operation is refused up front if the change is
// still depended upon by anything else on the channel (P7, dependency
// closure).
package unrecord

import (
	"context"

	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
)

// Unrecord removes h from channelName, undoing every atom it applied. It
// fails with ChangeNotOnChannelError if h is not currently on the
// channel, or ChangeIsDependedUponError if another change still on the
// channel depends on it.
func Unrecord(ctx context.Context, s store.Store, cs changestore.Changestore, tel *telemetry.Telemetry, channelName string, h pristine.Hash) error {
	stop := tel.StartTimer("unrecord")
	defer stop()

	return store.WithWrite(ctx, s, func(txn store.Txn) error {
		return unrecordTxn(txn, cs, channelName, h)
	})
}

func unrecordTxn(txn store.Txn, cs changestore.Changestore, channelName string, h pristine.Hash) error {
	id := channel.Intern(txn, h)
	if !channel.IsOnChannel(txn, channelName, id) {
		return &pristine.ChangeNotOnChannelError{Hash: h}
	}

	for _, depId := range channel.Dependents(txn, id) {
		if channel.IsOnChannel(txn, channelName, depId) {
			depHash, _ := channel.HashOf(txn, depId)
			return &pristine.ChangeIsDependedUponError{Dep: depHash}
		}
	}

	c, err := cs.GetChange(h)
	if err != nil {
		return err
	}

	u := &unrecorder{txn: txn, cs: cs, channelName: channelName, id: id, ws: apply.NewWorkspace()}

	atoms := apply.RemapSelfReferences(c.Atoms, id)
	for i := len(atoms) - 1; i >= 0; i-- {
		if err := u.undoAtom(atoms[i]); err != nil {
			return err
		}
	}

	// Steps 4 and 7 of spec.md §4.5: restore PSEUDO closure around
	// whatever this pass touched, then sweep obsolete PSEUDO edges and
	// repair any alive cycle left without a BLOCK edge — the same passes
	// Apply runs after writing a change's atoms. This module does not
	// model file/tree atoms (FileAddition/FileDel), so step 6's
	// filesystem-level revert has no state to act on here; see
	// DESIGN.md.
	apply.RepairMissingContext(txn, id, u.ws)
	apply.CleanObsoletePseudoEdges(txn, u.ws)
	apply.RepairCyclicPaths(txn, u.ws)

	depIds := make([]pristine.ChangeId, 0, len(c.Dependencies))
	for _, depHash := range c.Dependencies {
		depIds = append(depIds, channel.Intern(txn, depHash))
	}
	channel.RemoveFromChannel(txn, channelName, id, depIds)
	return nil
}

// unrecorder carries the per-call state undoAtom and its helpers need:
// the transaction, the changestore (for must_reintroduce's
// change_deletes_position lookups), the channel being unrecorded from,
// the ChangeId of the change being undone, and the workspace the final
// repair passes consume.
type unrecorder struct {
	txn         store.Txn
	cs          changestore.Changestore
	channelName string
	id          pristine.ChangeId
	ws          *apply.Workspace
}

// undoAtom reverses exactly what applyAtom wrote for this atom: a NewVertex
// loses its Up/Down edges and its block-index entry; an EdgeMap's edges are
// either restored to the flags they carried before the change that is
// being undone flipped them, or dropped entirely when must_reintroduce
// says some other still-present change already accounts for the same
// deletion (spec.md §4.5, "del_graph_with_rev").
func (u *unrecorder) undoAtom(atom apply.Atom) error {
	switch a := atom.(type) {
	case apply.NewVertex:
		return u.undoNewVertex(a)
	case apply.EdgeMap:
		return u.undoEdgeMap(a)
	case apply.Replacement:
		// Applied as [Deletion, Insertion]; undo in reverse.
		if err := u.undoNewVertex(a.Insertion); err != nil {
			return err
		}
		return u.undoEdgeMap(a.Deletion)
	}
	return nil
}

func (u *unrecorder) undoNewVertex(a apply.NewVertex) error {
	v := pristine.Vertex{Change: u.id, Start: a.Start.Start, End: a.Start.End}
	for _, up := range a.Up {
		u.undoEdgeBetween(up.Position, v.StartPos())
	}
	for _, down := range a.Down {
		u.undoEdgeBetween(v.EndPos(), down.Position)
	}
	graph.DeleteVertexBlock(u.txn, v)
	return nil
}

func (u *unrecorder) undoEdgeMap(a apply.EdgeMap) error {
	// must_reintroduce is computed for every edge in the EdgeMap before
	// any of them are mutated, so that an earlier edge's decision is
	// never skewed by a later edge's restoration within the same atom
	// (mirrors the two-pass structure of the original implementation's
	// unapply_edges).
	reintroduce := make([]bool, len(a.Edges))
	for i, e := range a.Edges {
		must, err := u.mustReintroduce(e)
		if err != nil {
			return err
		}
		reintroduce[i] = must
	}
	for i, e := range a.Edges {
		u.restoreEdge(e, reintroduce[i])
	}
	return nil
}

// undoEdgeBetween deletes the single edge applyAtom's NewVertex case wrote
// between from and to (not a whole-vertex edge scan: a vertex can carry
// several Up/Down attachments, and only the one this atom introduced must
// go).
func (u *unrecorder) undoEdgeBetween(from, to pristine.Position) {
	src := mustVertexAt(u.txn, from, false)
	tgt := mustVertexAt(u.txn, to, true)
	u.ws.Touch(src)
	u.ws.Touch(tgt)
	for _, e := range graph.ForwardEdges(u.txn, src) {
		if e.Target == tgt {
			graph.DelEdge(u.txn, e)
			return
		}
	}
}

// mustReintroduce decides spec.md §4.5 step 3's reintroduce-vs-remove
// question. It only applies to edges this change itself turned DELETED
// (a pure deletion, or a Replacement's deletion half): resurrections
// (edges this change un-deleted, e.g. resurrect_zombies/SolveOrderConflict)
// always restore their Previous flags unconditionally, since clearing
// DELETED never needs another change's deletion to still hold.
//
// For a deleting edge, the target position is still correctly deleted
// after unrecording c if some other change also on the channel deletes
// the same position — changestore.ChangeDeletesPosition walks c's own
// record of which changes delete a position; grounded in the original
// implementation's must_reintroduce/edge_is_in_channel in
// unrecord/mod.rs, simplified here to a single-level lookup rather than
// the original's transitive stack walk across indirectly-discovered
// deleter changes (see DESIGN.md).
func (u *unrecorder) mustReintroduce(e apply.NewEdge) (bool, error) {
	if !e.Flag.Has(pristine.EdgeDeleted) || e.Previous.Has(pristine.EdgeDeleted) {
		return true, nil
	}
	resolver := func(cid pristine.ChangeId) (pristine.Hash, bool) { return channel.HashOf(u.txn, cid) }
	deleters, err := u.cs.ChangeDeletesPosition(resolver, u.id, e.To)
	if err != nil {
		return false, err
	}
	selfHash, _ := channel.HashOf(u.txn, u.id)
	for _, h := range deleters {
		if h == selfHash {
			continue
		}
		otherId := channel.Intern(u.txn, h)
		if channel.IsOnChannel(u.txn, u.channelName, otherId) {
			return false, nil
		}
	}
	return true, nil
}

// restoreEdge undoes a single EdgeMap entry. If must is true, the edge is
// restored exactly as it stood before this change, flags and
// IntroducedBy included; otherwise the edge is dropped outright, since
// some other change still on the channel already accounts for its
// deletion and restoring it would resurrect content nothing currently
// wants alive.
func (u *unrecorder) restoreEdge(e apply.NewEdge, must bool) {
	src := mustVertexAt(u.txn, e.From, false)
	tgt := mustVertexAt(u.txn, e.To, true)
	u.ws.Touch(src)
	u.ws.Touch(tgt)

	introducedBy := src.Change
	for _, existing := range graph.ForwardEdges(u.txn, src) {
		if existing.Target == tgt {
			introducedBy = existing.IntroducedBy
			break
		}
	}

	graph.DelEdge(u.txn, pristine.Edge{Source: src, Target: tgt})
	if !must {
		if !graph.IsAlive(u.txn, tgt) {
			u.ws.TouchZombie(tgt)
		}
		return
	}
	graph.PutEdge(u.txn, pristine.Edge{Source: src, Target: tgt, Flags: e.Previous, IntroducedBy: introducedBy})
	if !graph.IsAlive(u.txn, tgt) {
		u.ws.TouchZombie(tgt)
	}
}

// mustVertexAt finds the vertex whose Start (down=true) or End (down=
// false) equals pos.Pos, without splitting — by the time Unrecord runs,
// every block boundary Apply created already exists in the block index.
func mustVertexAt(txn store.Txn, pos pristine.Position, down bool) pristine.Vertex {
	if pos.Change == pristine.RootChangeId && pos.Pos == 0 {
		return pristine.RootVertex
	}
	probe := pos
	if !down {
		probe.Pos = pos.Pos - 1
	}
	v, err := graph.FindBlock(txn, probe)
	if err != nil {
		return pristine.Vertex{Change: pos.Change, Start: pos.Pos, End: pos.Pos}
	}
	return v
}
