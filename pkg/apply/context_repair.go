package apply

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// repairMissingContext reconnects every zombie vertex collected during
// atom application with a PSEUDO edge from the nearest alive ancestor,
// restoring P5 (alive closure) without fabricating a change the caller
// never recorded. This is a structural simplification of the original's
// repair_missing_up_context/repair_missing_down_context pair: rather than
// searching arbitrarily far for the nearest alive vertex in both
// directions, it walks up the zombie's own reverse-edge chain (which
// always terminates at ROOT or at an alive vertex, since ROOT is always
// alive) and attaches there.
func repairMissingContext(txn store.Txn, changeId pristine.ChangeId, ws *Workspace) {
	seen := make(map[pristine.Vertex]bool)
	for _, z := range ws.zombies {
		if seen[z] {
			continue
		}
		seen[z] = true
		if graph.IsAlive(txn, z) {
			continue
		}
		ancestor := nearestAliveAncestor(txn, z)
		graph.PutEdge(txn, pristine.Edge{
			Source:       ancestor,
			Target:       z,
			Flags:        pristine.EdgePseudo | pristine.EdgeBlock,
			IntroducedBy: changeId,
		})
	}
	removeRedundantPseudoEdges(txn, ws)
}

func nearestAliveAncestor(txn store.Txn, v pristine.Vertex) pristine.Vertex {
	visited := map[pristine.Vertex]bool{v: true}
	frontier := []pristine.Vertex{v}
	for len(frontier) > 0 {
		next := frontier[:0]
		for _, cur := range frontier {
			for _, e := range graph.ReverseEdges(txn, cur) {
				p := e.Source
				if visited[p] {
					continue
				}
				visited[p] = true
				if graph.IsAlive(txn, p) {
					return p
				}
				next = append(next, p)
			}
		}
		frontier = next
	}
	return pristine.RootVertex
}

// removeRedundantPseudoEdges drops a PSEUDO edge into v when v already has
// another alive, non-PSEUDO parent: once real context covers a vertex, the
// pseudo-edge that was only standing in for it is noise (the original's
// remove_redundant_parents/remove_redundant_children).
func removeRedundantPseudoEdges(txn store.Txn, ws *Workspace) {
	for _, z := range ws.zombies {
		parents := graph.ReverseEdges(txn, z)
		hasRealParent := false
		for _, e := range parents {
			if !e.Flags.Has(pristine.EdgePseudo) && !e.Flags.Has(pristine.EdgeDeleted) {
				hasRealParent = true
				break
			}
		}
		if !hasRealParent {
			continue
		}
		for _, e := range parents {
			if e.Flags.Has(pristine.EdgePseudo) {
				graph.DelEdge(txn, e)
			}
		}
	}
}
