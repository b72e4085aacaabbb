package graph

import (
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// PutEdge writes both the forward and reverse copy of an edge (P1, edge
// symmetry): the forward copy under Source with the given flags, the
// reverse copy under Target with flags.Reverse() (the PARENT bit
// toggled). Both copies carry the same IntroducedBy.
func PutEdge(txn store.Txn, e pristine.Edge) {
	fwdKey := edgeKey(dirForward, e.Source, e.Target)
	fwdVal := encodeEdgeValue(e.Source.End, e.Target.End, e.Flags, e.IntroducedBy)
	txn.Put(store.TableGraph, fwdKey, fwdVal)

	revKey := edgeKey(dirReverse, e.Target, e.Source)
	revVal := encodeEdgeValue(e.Target.End, e.Source.End, e.Flags.Reverse(), e.IntroducedBy)
	txn.Put(store.TableGraph, revKey, revVal)
}

// DelEdge removes both copies of an edge. Used by Unrecord and by the
// pseudo-edge GC passes in pkg/apply.
func DelEdge(txn store.Txn, e pristine.Edge) {
	txn.Delete(store.TableGraph, edgeKey(dirForward, e.Source, e.Target))
	txn.Delete(store.TableGraph, edgeKey(dirReverse, e.Target, e.Source))
}

// SetDeleted flips the DELETED bit on both copies of an existing edge
// in place, preserving IntroducedBy. This is how apply marks an edge
// deleted without removing it (the target vertex becomes a tombstone,
// not a removed key).
func SetDeleted(txn store.Txn, e pristine.Edge, deleted bool) pristine.Edge {
	DelEdge(txn, e)
	flags := e.Flags
	if deleted {
		flags |= pristine.EdgeDeleted
	} else {
		flags &^= pristine.EdgeDeleted
	}
	e.Flags = flags
	PutEdge(txn, e)
	return e
}

// ForwardEdges returns every edge with Source == v (children of v).
func ForwardEdges(txn store.Txn, v pristine.Vertex) []pristine.Edge {
	return scanEdges(txn, dirForward, v)
}

// ReverseEdges returns every edge with Target == v (parents of v), each
// returned in forward orientation (Source=parent, Target=v) for caller
// convenience.
func ReverseEdges(txn store.Txn, v pristine.Vertex) []pristine.Edge {
	return scanEdges(txn, dirReverse, v)
}

func scanEdges(txn store.Txn, dir byte, self pristine.Vertex) []pristine.Edge {
	prefix := vertexKeyPrefix(dir, self)
	cur := txn.IterateFrom(store.TableGraph, prefix)
	defer cur.Close()

	var out []pristine.Edge
	for cur.Next() {
		kv := cur.KV()
		if len(kv.Key) < 17 || kv.Key[0] != dir {
			break
		}
		c := pristine.ChangeId(pristine.DecodeUint64(kv.Key[1:9]))
		s := pristine.ChangePosition(pristine.DecodeUint64(kv.Key[9:17]))
		if c != self.Change || s != self.Start {
			break
		}
		otherChange := pristine.ChangeId(pristine.DecodeUint64(kv.Key[17:25]))
		otherStart := pristine.ChangePosition(pristine.DecodeUint64(kv.Key[25:33]))
		selfEnd, otherEnd, flags, introducedBy := decodeEdgeValue(kv.Value)

		other := pristine.Vertex{Change: otherChange, Start: otherStart, End: otherEnd}
		selfV := pristine.Vertex{Change: self.Change, Start: self.Start, End: selfEnd}

		var edge pristine.Edge
		if dir == dirForward {
			edge = pristine.Edge{Source: selfV, Target: other, Flags: flags, IntroducedBy: introducedBy}
		} else {
			// Stored reverse copy: self is the target, other is the
			// source. Un-reverse the flags so callers always see the
			// edge from its forward (Source->Target) perspective.
			edge = pristine.Edge{Source: other, Target: selfV, Flags: flags.Reverse(), IntroducedBy: introducedBy}
		}
		out = append(out, edge)
	}
	return out
}

// IsAlive reports whether v has at least one non-PSEUDO incoming edge
// that is not DELETED, or is the ROOT vertex (spec.md GLOSSARY and §4.1).
// A non-empty v additionally needs that edge to carry BLOCK: a
// non-BLOCK, non-PSEUDO parent can still exist transiently during
// context repair without itself certifying the vertex as alive content.
// An empty v (a zero-length marker, e.g. a zombie confirmation or
// SolveOrderConflict vertex) only needs any non-DELETED parent.
func IsAlive(txn store.Txn, v pristine.Vertex) bool {
	if v.IsRoot() {
		return true
	}
	empty := v.Start == v.End
	for _, e := range ReverseEdges(txn, v) {
		if e.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		if empty {
			return true
		}
		if e.Flags.Has(pristine.EdgePseudo) && !e.Flags.Has(pristine.EdgeBlock) {
			// A pure pseudo connectivity edge keeps the subgraph
			// connected but does not itself make a non-empty vertex
			// "alive" unless it is also a BLOCK edge.
			continue
		}
		if !e.Flags.Has(pristine.EdgeBlock) {
			continue
		}
		return true
	}
	return false
}
