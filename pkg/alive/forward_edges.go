package alive

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// ForwardEdge is a PSEUDO edge whose destination SCC was already folded
// into the conflict tree by a different branch of the same condensation
// walk — a forward edge in DFS terms (spec.md §4.3 rule 2, grounded in
// the original implementation's Graph::collect_forward_edges in
// alive/dfs.rs). It adds no alive connectivity the tree doesn't already
// account for, so once the walk that found it has finished reading the
// graph the edge is a removal candidate: keeping it around only risks a
// later alive cycle with no BLOCK edge to explain it (invariant P6).
type ForwardEdge struct {
	From pristine.Vertex
	To   pristine.Vertex
}

// CollectForwardEdges turns the SCC-level pairs BuildConflictTreeWithForward
// found into concrete vertex-level PSEUDO edges. BLOCK edges are never
// reported: a BLOCK cycle is a real conflict the render layer must still
// show, while a PSEUDO forward edge is pure bookkeeping left over from an
// earlier repair pass (put_newedge's reconnect-on-delete, or a prior
// resolved conflict) that the tree walk has now proven redundant.
func CollectForwardEdges(g *Graph, sccOf []int, forwardSCC map[[2]int]bool) []ForwardEdge {
	if len(forwardSCC) == 0 {
		return nil
	}
	sccVerts := make(map[int][]int)
	for vi, s := range sccOf {
		sccVerts[s] = append(sccVerts[s], vi)
	}

	var out []ForwardEdge
	for pair := range forwardSCC {
		a, b := pair[0], pair[1]
		for _, vi := range sccVerts[a] {
			for _, c := range g.Children[vi] {
				if sccOf[c.To] != b || !c.Flags.Has(pristine.EdgePseudo) {
					continue
				}
				out = append(out, ForwardEdge{From: g.Lines[vi], To: g.Lines[c.To]})
			}
		}
	}
	return out
}

// RemoveForwardEdges deletes every edge CollectForwardEdges reported from
// the underlying graph. Called after a file's output pass has finished
// reading the alive subgraph, the same ordering output_graph in the
// original implementation's alive/output.rs uses: collect while walking
// the tree, purge once the walk (and any conflict rendering derived from
// it) is done with the edges in their original shape.
func RemoveForwardEdges(txn store.Txn, edges []ForwardEdge) {
	for _, fe := range edges {
		for _, e := range graph.ForwardEdges(txn, fe.From) {
			if e.Target == fe.To && e.Flags.Has(pristine.EdgePseudo) {
				graph.DelEdge(txn, e)
				break
			}
		}
	}
}
