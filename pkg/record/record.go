package record

import (
	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
)

// Record diffs the current alive content reachable from root against
// newContent and returns the atoms a change applying that edit would
// carry, plus the raw Contents blob those atoms' NewVertex ranges index
// into. The caller (pkg/channel/CLI layer) is responsible for hashing the
// result and handing it to pkg/apply.Apply.
func Record(txn store.Txn, root pristine.Vertex, newContent []byte, resolver render.ContentsResolver) (apply.Change, error) {
	g := alive.Retrieve(txn, root)
	sccOf, sccs := alive.Tarjan(g)
	rootIdx, _ := g.IndexOf(root)
	path := alive.BuildConflictTree(g, sccOf, sccOf[rootIdx])

	tb := &trackingBuffer{}
	if err := render.Render(txn, g, sccOf, sccs, path, resolver, tb); err != nil {
		return apply.Change{}, err
	}

	ops := diffLines(tb.lines, splitLines(newContent))
	return buildAtoms(txn, root, ops)
}

// buildAtoms walks the diff script maintaining the up-context cursor (the
// position new insertions attach below: the end of the most recently seen
// still-alive vertex, or root) and the down-context lookahead (the start
// of the next still-alive vertex, used to close off an insertion run).
func buildAtoms(txn store.Txn, root pristine.Vertex, ops []op) (apply.Change, error) {
	var atoms []apply.Atom
	var contents []byte

	cursor := root.EndPos()
	if root.IsRoot() {
		cursor = pristine.Position{Change: pristine.RootChangeId, Pos: 0}
	}

	// singleLineDeletion tracks whether the immediately preceding op was
	// an opDelete of exactly one real line that produced exactly one
	// EdgeMap atom, and if so its index in atoms: the shape replace()
	// merges into a Hunk::Replacement when an insertion follows it on the
	// same line (libpijul's diff/replace.rs pop-and-push of the previous
	// Hunk::Edit).
	singleLineDeletionAt := -1

	for idx, o := range ops {
		switch o.kind {
		case opEqual:
			if last, ok := lastRealLine(o.oldLines); ok {
				cursor = last.vertex.EndPos()
			}
			singleLineDeletionAt = -1

		case opDelete:
			atomsBefore := len(atoms)
			realDeleted := 0
			for _, line := range o.oldLines {
				if line.marker {
					// Conflict bracket text has no vertex of its own: its
					// presence or absence follows from which real content
					// lines on either side of it survive, not from an edge
					// this differ can delete directly.
					continue
				}
				realDeleted++
				parents := graph.ReverseEdges(txn, line.vertex)
				for _, p := range parents {
					if p.Flags.Has(pristine.EdgeDeleted) {
						continue
					}
					atoms = append(atoms, apply.EdgeMap{Edges: []apply.NewEdge{{
						From:     p.Source.EndPos(),
						To:       line.vertex.StartPos(),
						Previous: p.Flags,
						Flag:     p.Flags | pristine.EdgeDeleted,
					}}})
				}
			}
			if realDeleted == 1 && len(atoms) == atomsBefore+1 {
				singleLineDeletionAt = atomsBefore
			} else {
				singleLineDeletionAt = -1
			}

		case opInsert:
			downPos, hasDown := nextAliveStart(ops, idx)
			start := pristine.ChangePosition(len(contents))
			for _, l := range o.newLines {
				contents = append(contents, l...)
			}
			end := pristine.ChangePosition(len(contents))

			var down []apply.EdgeTarget
			if hasDown {
				down = []apply.EdgeTarget{{Position: downPos}}
			}
			nv := apply.NewVertex{
				Start: apply.ChangePosRange{Start: start, End: end},
				Up:    []apply.EdgeTarget{{Position: cursor}},
				Down:  down,
				// Ordinary content always attaches with BLOCK: a non-empty
				// vertex only counts as alive through a BLOCK parent
				// (pkg/graph.IsAlive, spec.md §4.1), and a plain line
				// insertion is exactly the case that refinement is meant to
				// recognize as real content rather than pseudo-context.
				Flags: pristine.EdgeBlock,
			}

			if idx > 0 && ops[idx-1].kind == opDelete && singleLineDeletionAt == len(atoms)-1 {
				em := atoms[singleLineDeletionAt].(apply.EdgeMap)
				atoms = append(atoms[:singleLineDeletionAt], apply.Replacement{Deletion: em, Insertion: nv})
			} else {
				atoms = append(atoms, nv)
			}
			singleLineDeletionAt = -1

			// This change's own ChangeId is not allocated until Apply
			// interns its Hash, so a position inside this run's own new
			// vertex is expressed with the RootChangeId sentinel and a
			// nonzero offset; pkg/apply.applyTxn remaps every such
			// self-reference to the real ChangeId before writing any
			// edge (see apply/selfref.go).
			cursor = pristine.Position{Change: pristine.RootChangeId, Pos: end}
		}
	}

	return apply.Change{Atoms: atoms, Contents: contents}, nil
}

// lastRealLine returns the last non-marker line of an opEqual run, so the
// up-context cursor never advances to a synthetic conflict-bracket
// position.
func lastRealLine(lines []trackedLine) (trackedLine, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if !lines[i].marker {
			return lines[i], true
		}
	}
	return trackedLine{}, false
}

// nextAliveStart looks ahead from ops[after+1:] for the next still-alive
// vertex (the first real oldLine of the next opEqual run), which becomes
// the down-context closing an insertion or deletion run.
func nextAliveStart(ops []op, after int) (pristine.Position, bool) {
	for i := after + 1; i < len(ops); i++ {
		if ops[i].kind != opEqual {
			continue
		}
		for _, l := range ops[i].oldLines {
			if !l.marker {
				return l.vertex.StartPos(), true
			}
		}
	}
	return pristine.Position{}, false
}
