// Package alive implements spec.md §4.3: retrieving the alive subgraph
// reachable from a starting vertex (typically a file's root), computing
// its strongly connected components with Tarjan's algorithm, and building
// the DFS conflict tree that the render/output packages walk to produce
// text with conflict markers.
package alive

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// Graph is the materialized alive subgraph for one file: a dense list of
// alive vertices (Lines) plus, for each, the indices of its alive
// children (Children). Indices rather than pointers keep the structure
// free of cyclic ownership and trivially shareable across output workers
// (spec.md §9, "Memory discipline").
type Graph struct {
	Lines    []pristine.Vertex
	Children [][]Child
	indexOf  map[pristine.Vertex]int
}

// Child is one alive outgoing edge, carrying enough of the edge to decide
// rendering order and PSEUDO-forward-edge cleanup eligibility later.
type Child struct {
	To     int
	Flags  pristine.EdgeFlags
	Intro  pristine.ChangeId
}

// Retrieve performs a BFS from root, following only alive edges (any edge
// without DELETED set — zombie vertices targeted solely by DELETED edges
// are excluded from the materialized graph but handled separately by the
// render package's zombie-conflict bracket), and returns the resulting
// Graph.
func Retrieve(txn store.Txn, root pristine.Vertex) *Graph {
	g := &Graph{indexOf: make(map[pristine.Vertex]int)}
	queue := []pristine.Vertex{root}
	g.indexOf[root] = 0
	g.Lines = append(g.Lines, root)
	g.Children = append(g.Children, nil)

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		vi := g.indexOf[v]
		for _, e := range graph.ForwardEdges(txn, v) {
			if e.Flags.Has(pristine.EdgeDeleted) {
				continue
			}
			ci, ok := g.indexOf[e.Target]
			if !ok {
				ci = len(g.Lines)
				g.indexOf[e.Target] = ci
				g.Lines = append(g.Lines, e.Target)
				g.Children = append(g.Children, nil)
				queue = append(queue, e.Target)
			}
			g.Children[vi] = append(g.Children[vi], Child{To: ci, Flags: e.Flags, Intro: e.IntroducedBy})
		}
	}
	return g
}

// IndexOf returns the Graph-local index of v, if it was reached.
func (g *Graph) IndexOf(v pristine.Vertex) (int, bool) {
	i, ok := g.indexOf[v]
	return i, ok
}
