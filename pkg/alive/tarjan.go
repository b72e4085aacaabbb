package alive

// Tarjan computes the strongly connected components of g in reverse
// topological order, iteratively (no recursion, matching the original's
// explicit-stack style in alive/dfs.rs, which avoids blowing the native
// stack on long files). SCCs of size > 1 are cyclic conflicts
// (spec.md §4.3, GLOSSARY "SCC").
//
// Returns, for each vertex index, the SCC id it belongs to, and the list
// of SCCs themselves (each a list of vertex indices), ordered so that an
// SCC never references (as a successor) an SCC appearing later in the
// slice — i.e. true reverse topological order.
func Tarjan(g *Graph) (sccOf []int, sccs [][]int) {
	n := len(g.Lines)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	sccOf = make([]int, n)
	for i := range sccOf {
		sccOf[i] = -1
	}

	var stack []int
	nextIndex := 0

	type frame struct {
		v       int
		childAt int
	}

	for start := 0; start < n; start++ {
		if index[start] != -1 {
			continue
		}
		var call []frame
		call = append(call, frame{v: start})
		index[start] = nextIndex
		lowlink[start] = nextIndex
		nextIndex++
		stack = append(stack, start)
		onStack[start] = true

		for len(call) > 0 {
			top := &call[len(call)-1]
			v := top.v
			if top.childAt < len(g.Children[v]) {
				w := g.Children[v][top.childAt].To
				top.childAt++
				if index[w] == -1 {
					index[w] = nextIndex
					lowlink[w] = nextIndex
					nextIndex++
					stack = append(stack, w)
					onStack[w] = true
					call = append(call, frame{v: w})
				} else if onStack[w] {
					if index[w] < lowlink[v] {
						lowlink[v] = index[w]
					}
				}
				continue
			}
			// Done with v's children.
			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := &call[len(call)-1]
				if lowlink[v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[v]
				}
			}
			if lowlink[v] == index[v] {
				var scc []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				id := len(sccs)
				for _, w := range scc {
					sccOf[w] = id
				}
				sccs = append(sccs, scc)
			}
		}
	}
	return sccOf, sccs
}

// IsCyclic reports whether the SCC at id contains more than one vertex, or
// a single vertex with a self-loop.
func IsCyclic(g *Graph, sccOf []int, sccs [][]int, id int) bool {
	scc := sccs[id]
	if len(scc) > 1 {
		return true
	}
	v := scc[0]
	for _, c := range g.Children[v] {
		if c.To == v {
			return true
		}
	}
	return false
}
