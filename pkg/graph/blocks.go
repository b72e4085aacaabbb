package graph

import (
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// dirBlock indexes every vertex's extent independent of its edges, so
// find_block can locate a vertex even when it currently has no forward
// edge (a fully-deleted leaf, for instance). Key: 0x03 || change(8) ||
// start(8); value: end(8).
const dirBlock byte = 0x03

func blockKey(change pristine.ChangeId, start pristine.ChangePosition) []byte {
	key := make([]byte, 0, 17)
	key = append(key, dirBlock)
	key = append(key, pristine.EncodeUint64(uint64(change))...)
	key = append(key, pristine.EncodeUint64(uint64(start))...)
	return key
}

// PutVertex registers a vertex's extent in the block index. Called by
// pkg/apply whenever a NewVertex atom introduces a vertex or SplitBlock
// divides an existing one.
func PutVertex(txn store.Txn, v pristine.Vertex) {
	txn.Put(store.TableGraph, blockKey(v.Change, v.Start), pristine.EncodeUint64(uint64(v.End)))
}

// DeleteVertexBlock removes a vertex's block-index entry, used when
// SplitBlock replaces one vertex with two narrower ones or when Unrecord
// undoes a NewVertex.
func DeleteVertexBlock(txn store.Txn, v pristine.Vertex) {
	txn.Delete(store.TableGraph, blockKey(v.Change, v.Start))
}

// FindBlock locates the vertex of the given change whose half-open range
// contains pos (spec.md §4.1). Returns BlockNotFoundError if no such
// vertex is registered.
func FindBlock(txn store.Txn, pos pristine.Position) (pristine.Vertex, error) {
	if pos.Change == pristine.RootChangeId && pos.Pos == 0 {
		return pristine.RootVertex, nil
	}
	lo := blockKey(pos.Change, 0)
	hi := blockKey(pos.Change, pos.Pos+1)
	cur := txn.IterateRange(store.TableGraph, lo, hi)
	defer cur.Close()

	var best pristine.Vertex
	found := false
	for cur.Next() {
		kv := cur.KV()
		start := pristine.ChangePosition(pristine.DecodeUint64(kv.Key[9:17]))
		end := pristine.ChangePosition(pristine.DecodeUint64(kv.Value))
		if start <= pos.Pos && pos.Pos < end {
			best = pristine.Vertex{Change: pos.Change, Start: start, End: end}
			found = true
		}
	}
	if !found {
		return pristine.Vertex{}, &pristine.BlockNotFoundError{Position: pos}
	}
	return best, nil
}

// SplitBlock divides vertex v into [v.Start, at) and [at, v.End), rewriting
// the block index and moving every edge endpoint that referenced v.End
// onto the new right-hand vertex's End while edges into v.Start keep their
// left-hand vertex. Edges whose "other" endpoint was in the middle of the
// range are not possible by construction: callers only split at positions
// that are themselves context boundaries.
func SplitBlock(txn store.Txn, v pristine.Vertex, at pristine.ChangePosition) (left, right pristine.Vertex) {
	left = pristine.Vertex{Change: v.Change, Start: v.Start, End: at}
	right = pristine.Vertex{Change: v.Change, Start: at, End: v.End}

	DeleteVertexBlock(txn, v)
	PutVertex(txn, left)
	PutVertex(txn, right)

	// Rewire every edge touching v onto whichever half contains its
	// attachment point: children hang off v.End and move to right, parents
	// attach at v.Start and move to left. Both stored copies of each edge
	// are rewritten, keeping flags and IntroducedBy.
	for _, e := range ForwardEdges(txn, v) {
		DelEdge(txn, e)
		e.Source = right
		PutEdge(txn, e)
	}
	for _, e := range ReverseEdges(txn, v) {
		DelEdge(txn, e)
		e.Target = left
		PutEdge(txn, e)
	}
	// The new internal boundary needs its own BLOCK edge so the two
	// halves remain connected in the alive subgraph.
	PutEdge(txn, pristine.Edge{
		Source:       left,
		Target:       right,
		Flags:        pristine.EdgeBlock,
		IntroducedBy: v.Change,
	})
	return left, right
}

func rekeyEdgesForSplit(txn store.Txn, old, left, right pristine.Vertex, dir byte) {
	prefix := vertexKeyPrefix(dir, old)
	cur := txn.IterateFrom(store.TableGraph, prefix)
	defer cur.Close()
	var toMove []store.KV
	for cur.Next() {
		kv := cur.KV()
		if len(kv.Key) < 1 || kv.Key[0] != dir {
			break
		}
		if len(kv.Key) < 17 {
			continue
		}
		c := pristine.ChangeId(pristine.DecodeUint64(kv.Key[1:9]))
		s := pristine.ChangePosition(pristine.DecodeUint64(kv.Key[9:17]))
		if c != old.Change || s != old.Start {
			break
		}
		toMove = append(toMove, KV_(kv.Key, kv.Value))
	}
	// Edges keyed by the vertex's Start always belong to the left half
	// after a split (the left half keeps the original Start).
	for _, kv := range toMove {
		txn.Delete(store.TableGraph, kv.Key)
		newKey := append([]byte{dir}, pristine.EncodeUint64(uint64(left.Change))...)
		newKey = append(newKey, pristine.EncodeUint64(uint64(left.Start))...)
		newKey = append(newKey, kv.Key[17:]...)
		txn.Put(store.TableGraph, newKey, kv.Value)
	}
}

// KV_ is a tiny helper to avoid importing store.KV construction noise at
// each call site above.
func KV_(k, v []byte) store.KV { return store.KV{Key: k, Value: v} }
