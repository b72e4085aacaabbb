package apply

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// resolveDown returns the vertex whose Start equals pos.Pos, splitting the
// block that currently contains pos if pos falls strictly inside it. Used
// to resolve the target of every new edge, up-context and down-context
// alike (the new vertex always attaches exactly at a block boundary from
// the perspective of the vertex it attaches to).
func resolveDown(txn store.Txn, pos pristine.Position) (pristine.Vertex, error) {
	if pos.Change == pristine.RootChangeId && pos.Pos == 0 {
		return pristine.RootVertex, nil
	}
	b, err := graph.FindBlock(txn, pos)
	if err != nil {
		return pristine.Vertex{}, err
	}
	if b.Start == pos.Pos {
		return b, nil
	}
	_, right := graph.SplitBlock(txn, b, pos.Pos)
	return right, nil
}

// resolveUp returns the vertex whose End equals pos.Pos, splitting the
// block that currently contains pos-1 if necessary. Used to resolve the
// source of every new edge.
func resolveUp(txn store.Txn, pos pristine.Position) (pristine.Vertex, error) {
	if pos.Change == pristine.RootChangeId && pos.Pos == 0 {
		return pristine.RootVertex, nil
	}
	probe := pristine.Position{Change: pos.Change, Pos: pos.Pos - 1}
	b, err := graph.FindBlock(txn, probe)
	if err != nil {
		return pristine.Vertex{}, err
	}
	if b.End == pos.Pos {
		return b, nil
	}
	left, _ := graph.SplitBlock(txn, b, pos.Pos)
	return left, nil
}
