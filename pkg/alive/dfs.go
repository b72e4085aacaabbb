package alive

// PathElement is either a single SCC on the linear spine of a Path, or a
// Conflict where the spine forks into multiple Sides that later rejoin
// (spec.md §4.3's DFS conflict tree, modeled after the original's
// Path/PathElement in alive/dfs.rs).
type PathElement struct {
	SCC      int
	Conflict *ConflictNode
}

// ConflictNode holds one fork in the conflict tree: every alternate route
// the graph offers between the fork point and the point where the routes
// converge again. Sides are ordered by oldest_vertex in the render layer,
// not here.
type ConflictNode struct {
	Sides [][]PathElement
}

// Path is a materialized root-to-sink walk of the SCC condensation with
// forks expanded into ConflictNodes. It is materialized rather than
// iterated because sides must be reordered after discovery (spec.md §9).
type Path struct {
	Elements []PathElement
}

// condensationSuccessors collapses the vertex-level alive graph down to
// one entry per SCC: the distinct SCCs any vertex in scc `a` has a live
// edge into.
func condensationSuccessors(g *Graph, sccOf []int) map[int][]int {
	out := make(map[int][]int)
	seen := make(map[[2]int]bool)
	for v, children := range g.Children {
		a := sccOf[v]
		for _, c := range children {
			b := sccOf[c.To]
			if a == b {
				continue
			}
			key := [2]int{a, b}
			if seen[key] {
				continue
			}
			seen[key] = true
			out[a] = append(out[a], b)
		}
	}
	return out
}

// BuildConflictTree walks the SCC condensation from startSCC, producing a
// Path whose forks are resolved into ConflictNodes wherever a node has
// more than one unvisited successor. When several branches reconverge at
// a common descendant SCC, the fork's sides stop there and the spine
// continues from the join point; branches that never reconverge (the
// graph keeps diverging, or ends) are rendered as open-ended sides with no
// continuation. This function handles any number of sides per fork;
// nested forks inside a side are themselves full sub-Paths, so genuinely
// nested conflicts (a fork inside one branch of an outer fork) are
// represented exactly, not flattened.
func BuildConflictTree(g *Graph, sccOf []int, startSCC int) Path {
	succ := condensationSuccessors(g, sccOf)
	visited := make(map[int]bool)
	return walkSpine(startSCC, succ, visited, nil)
}

// BuildConflictTreeWithForward is BuildConflictTree plus the set of SCC
// pairs (a, b) where the condensation walk found an edge a->b whose target
// b was already folded into the tree by another branch: a forward edge in
// DFS terms. output_graph in the original implementation's alive/output.rs
// threads this same pair out of dfs() into collect_forward_edges.
func BuildConflictTreeWithForward(g *Graph, sccOf []int, startSCC int) (Path, map[[2]int]bool) {
	succ := condensationSuccessors(g, sccOf)
	visited := make(map[int]bool)
	forward := make(map[[2]int]bool)
	path := walkSpine(startSCC, succ, visited, forward)
	return path, forward
}

func walkSpine(start int, succ map[int][]int, visited map[int]bool, forward map[[2]int]bool) Path {
	var path Path
	cur := start
	for cur != -1 {
		if visited[cur] {
			return path
		}
		visited[cur] = true
		path.Elements = append(path.Elements, PathElement{SCC: cur})

		children := unvisitedSuccessors(cur, succ[cur], visited, forward)
		switch len(children) {
		case 0:
			return path
		case 1:
			cur = children[0]
			continue
		default:
			join := findJoin(children, succ, visited)
			sides := make([][]PathElement, 0, len(children))
			for _, c := range children {
				branchVisited := copyVisited(visited)
				sidePath := walkSpineUntil(c, succ, branchVisited, join, forward)
				sides = append(sides, sidePath.Elements)
				markVisited(visited, sidePath.Elements)
			}
			path.Elements = append(path.Elements, PathElement{Conflict: &ConflictNode{Sides: sides}})
			if join == -1 {
				return path
			}
			cur = join
		}
	}
	return path
}

// walkSpineUntil is walkSpine but stops (without including) the join SCC,
// used to build one side of a conflict fork.
func walkSpineUntil(start int, succ map[int][]int, visited map[int]bool, join int, forward map[[2]int]bool) Path {
	var path Path
	cur := start
	for cur != -1 && cur != join {
		if visited[cur] {
			return path
		}
		visited[cur] = true
		path.Elements = append(path.Elements, PathElement{SCC: cur})
		children := unvisitedSuccessors(cur, succ[cur], visited, forward)
		filtered := children[:0:0]
		for _, c := range children {
			if c != join {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			return path
		}
		if len(filtered) == 1 {
			cur = filtered[0]
			continue
		}
		nestedJoin := findJoin(filtered, succ, visited)
		sides := make([][]PathElement, 0, len(filtered))
		for _, c := range filtered {
			branchVisited := copyVisited(visited)
			sidePath := walkSpineUntil(c, succ, branchVisited, nestedJoin, forward)
			sides = append(sides, sidePath.Elements)
			markVisited(visited, sidePath.Elements)
		}
		path.Elements = append(path.Elements, PathElement{Conflict: &ConflictNode{Sides: sides}})
		if nestedJoin == -1 {
			return path
		}
		cur = nestedJoin
	}
	return path
}

// unvisitedSuccessors splits cur's condensation successors into the ones
// the walk should still descend into and the ones already folded into the
// tree by another branch. The latter are forward edges (spec.md §4.3 rule
// 2): when forward is non-nil, every (cur, c) pair this call drops is
// recorded for CollectForwardEdges.
func unvisitedSuccessors(cur int, candidates []int, visited map[int]bool, forward map[[2]int]bool) []int {
	var out []int
	for _, c := range candidates {
		if visited[c] {
			if forward != nil {
				forward[[2]int{cur, c}] = true
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func copyVisited(v map[int]bool) map[int]bool {
	out := make(map[int]bool, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func markVisited(v map[int]bool, elems []PathElement) {
	for _, e := range elems {
		if e.Conflict != nil {
			for _, side := range e.Conflict.Sides {
				markVisited(v, side)
			}
			continue
		}
		v[e.SCC] = true
	}
}

// findJoin does a level-order BFS from every branch root simultaneously
// and returns the first SCC reached by all of them — the nearest common
// reconvergence point — or -1 if the branches never reconverge.
func findJoin(branches []int, succ map[int][]int, alreadyVisited map[int]bool) int {
	reached := make([]map[int]int, len(branches))
	for i, b := range branches {
		reached[i] = bfsDistances(b, succ, alreadyVisited)
	}
	best := -1
	bestDist := -1
	for node, d0 := range reached[0] {
		inAll := true
		maxDist := d0
		for i := 1; i < len(reached); i++ {
			d, ok := reached[i][node]
			if !ok {
				inAll = false
				break
			}
			if d > maxDist {
				maxDist = d
			}
		}
		if inAll && (best == -1 || maxDist < bestDist) {
			best = node
			bestDist = maxDist
		}
	}
	return best
}

func bfsDistances(start int, succ map[int][]int, exclude map[int]bool) map[int]int {
	dist := map[int]int{start: 0}
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range succ[n] {
			if exclude[c] {
				continue
			}
			if _, ok := dist[c]; ok {
				continue
			}
			dist[c] = dist[n] + 1
			queue = append(queue, c)
		}
	}
	return dist
}
