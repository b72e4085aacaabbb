package apply

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// cleanObsoletePseudoEdges sweeps every vertex touched during this
// apply/unrecord pass and removes PSEUDO edges whose endpoints are both
// dead: once neither side is alive, the pseudo-edge is no longer doing
// any connectivity work (spec.md §4.2, "Pseudo-edge GC"). Run this after
// repairMissingContext/detectFolderConflictResolutions so it sees the
// final alive/dead status of everything the pass touched.
//
// apply/mod.rs, which owns the original implementation of this pass and
// repairCyclicPaths below, was not part of the retrieved reference
// sources (see DESIGN.md); both are implemented here directly from
// spec.md's prose description.
func cleanObsoletePseudoEdges(txn store.Txn, ws *Workspace) {
	seen := make(map[pristine.Vertex]bool, len(ws.touched))
	for _, v := range ws.touched {
		if seen[v] {
			continue
		}
		seen[v] = true
		sweepPseudoEdgesAt(txn, v)
	}
}

func sweepPseudoEdgesAt(txn store.Txn, v pristine.Vertex) {
	for _, e := range graph.ForwardEdges(txn, v) {
		if !e.Flags.Has(pristine.EdgePseudo) {
			continue
		}
		if graph.IsAlive(txn, e.Source) || graph.IsAlive(txn, e.Target) {
			continue
		}
		graph.DelEdge(txn, e)
	}
	for _, e := range graph.ReverseEdges(txn, v) {
		if !e.Flags.Has(pristine.EdgePseudo) {
			continue
		}
		if graph.IsAlive(txn, e.Source) || graph.IsAlive(txn, e.Target) {
			continue
		}
		graph.DelEdge(txn, e)
	}
}

// repairCyclicPaths ensures that no alive cycle remains without at least
// one BLOCK edge in it, so the output engine's DFS can deterministically
// tell a cyclic conflict apart from ordinary alive connectivity (spec.md
// §4.2). For every vertex touched during this pass, it looks for a cycle
// made up entirely of non-BLOCK alive edges and upgrades one edge on the
// cycle to carry BLOCK, breaking the ambiguity without otherwise changing
// the alive subgraph's reachability.
func repairCyclicPaths(txn store.Txn, ws *Workspace) {
	seen := make(map[pristine.Vertex]bool, len(ws.touched))
	for _, v := range ws.touched {
		if seen[v] {
			continue
		}
		seen[v] = true
		breakNonBlockCycle(txn, v)
	}
}

func breakNonBlockCycle(txn store.Txn, start pristine.Vertex) {
	visited := map[pristine.Vertex]bool{}
	var path []pristine.Edge
	var dfs func(v pristine.Vertex) bool
	dfs = func(v pristine.Vertex) bool {
		if visited[v] {
			return false
		}
		visited[v] = true
		for _, e := range graph.ForwardEdges(txn, v) {
			if e.Flags.Has(pristine.EdgeDeleted) || e.Flags.Has(pristine.EdgeBlock) {
				continue
			}
			path = append(path, e)
			if e.Target == start {
				return true
			}
			if dfs(e.Target) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if dfs(start) && len(path) > 0 {
		e := path[0]
		upgraded := e
		upgraded.Flags |= pristine.EdgeBlock
		graph.DelEdge(txn, e)
		graph.PutEdge(txn, upgraded)
	}
}
