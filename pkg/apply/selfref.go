package apply

import "github.com/orneryd/pristine/pkg/pristine"

// RemapSelfReferences rewrites every Position that names a vertex inside
// the change currently being applied. Record (pkg/record) cannot know its
// own ChangeId in advance — that id is only allocated once Apply interns
// the change's Hash — so it expresses such positions with the
// RootChangeId sentinel and a nonzero offset (the only Position that
// legitimately uses RootChangeId with Pos == 0 is the literal ROOT
// vertex). This function is the one place that sentinel is resolved back
// to a real ChangeId, before any atom touches the graph.
func RemapSelfReferences(atoms []Atom, id pristine.ChangeId) []Atom {
	out := make([]Atom, len(atoms))
	for i, a := range atoms {
		switch v := a.(type) {
		case NewVertex:
			v.Up = remapTargets(v.Up, id)
			v.Down = remapTargets(v.Down, id)
			out[i] = v
		case EdgeMap:
			edges := make([]NewEdge, len(v.Edges))
			for j, e := range v.Edges {
				e.From = remapPosition(e.From, id)
				e.To = remapPosition(e.To, id)
				edges[j] = e
			}
			out[i] = EdgeMap{Edges: edges}
		case Replacement:
			inner := RemapSelfReferences([]Atom{v.Deletion, v.Insertion}, id)
			out[i] = Replacement{Deletion: inner[0].(EdgeMap), Insertion: inner[1].(NewVertex)}
		default:
			out[i] = a
		}
	}
	return out
}

func remapTargets(targets []EdgeTarget, id pristine.ChangeId) []EdgeTarget {
	out := make([]EdgeTarget, len(targets))
	for i, t := range targets {
		t.Position = remapPosition(t.Position, id)
		out[i] = t
	}
	return out
}

func remapPosition(p pristine.Position, id pristine.ChangeId) pristine.Position {
	if p.Change == pristine.RootChangeId && p.Pos != 0 {
		p.Change = id
	}
	return p
}
