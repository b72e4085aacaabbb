package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

func TestFindBlockLocatesVertexByPosition(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	v := pristine.Vertex{Change: 1, Start: 0, End: 10}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, v)
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		found, err := graph.FindBlock(txn, pristine.Position{Change: 1, Pos: 5})
		require.NoError(t, err)
		assert.Equal(t, v, found)

		_, err = graph.FindBlock(txn, pristine.Position{Change: 1, Pos: 10})
		assert.Error(t, err)
		return nil
	}))
}

func TestFindBlockResolvesRoot(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	require.NoError(t, store.WithRead(context.Background(), s, func(txn store.Txn) error {
		v, err := graph.FindBlock(txn, pristine.Position{Change: pristine.RootChangeId, Pos: 0})
		require.NoError(t, err)
		assert.Equal(t, pristine.RootVertex, v)
		return nil
	}))
}

func TestPutEdgeWritesBothDirections(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	parent := pristine.Vertex{Change: 1, Start: 0, End: 5}
	child := pristine.Vertex{Change: 1, Start: 5, End: 10}
	edge := pristine.Edge{Source: parent, Target: child, Flags: pristine.EdgeBlock, IntroducedBy: 1}

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, parent)
		graph.PutVertex(txn, child)
		graph.PutEdge(txn, edge)
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		fwd := graph.ForwardEdges(txn, parent)
		require.Len(t, fwd, 1)
		assert.Equal(t, child, fwd[0].Target)

		rev := graph.ReverseEdges(txn, child)
		require.Len(t, rev, 1)
		assert.Equal(t, parent, rev[0].Source)
		return nil
	}))
}

func TestSetDeletedTogglesBothCopies(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	parent := pristine.Vertex{Change: 1, Start: 0, End: 5}
	child := pristine.Vertex{Change: 1, Start: 5, End: 10}
	edge := pristine.Edge{Source: parent, Target: child, Flags: pristine.EdgeBlock, IntroducedBy: 1}

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, parent)
		graph.PutVertex(txn, child)
		graph.PutEdge(txn, edge)
		graph.SetDeleted(txn, edge, true)
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		fwd := graph.ForwardEdges(txn, parent)
		require.Len(t, fwd, 1)
		assert.True(t, fwd[0].Flags.Has(pristine.EdgeDeleted))

		rev := graph.ReverseEdges(txn, child)
		require.Len(t, rev, 1)
		assert.True(t, rev[0].Flags.Has(pristine.EdgeDeleted))
		return nil
	}))
}

func TestIsAliveRootAndPseudoOnly(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	leaf := pristine.Vertex{Change: 1, Start: 0, End: 5}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, leaf)
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		assert.True(t, graph.IsAlive(txn, pristine.RootVertex))
		assert.False(t, graph.IsAlive(txn, leaf))
		return nil
	}))

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutEdge(txn, pristine.Edge{
			Source: pristine.RootVertex, Target: leaf,
			Flags: pristine.EdgePseudo, IntroducedBy: 1,
		})
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		assert.False(t, graph.IsAlive(txn, leaf), "a pure pseudo edge without BLOCK must not make its target alive")
		return nil
	}))
}

func TestIsAliveEmptyVertexNeedsOnlyAnyNonDeletedParent(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	empty := pristine.Vertex{Change: 1, Start: 0, End: 0}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, empty)
		graph.PutEdge(txn, pristine.Edge{
			Source: pristine.RootVertex, Target: empty,
			Flags: pristine.EdgePseudo, IntroducedBy: 1,
		})
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		assert.True(t, graph.IsAlive(txn, empty), "an empty vertex is alive through any non-deleted parent, BLOCK or not")
		return nil
	}))
}

func TestIsAliveNonEmptyVertexNeedsBlockParent(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	leaf := pristine.Vertex{Change: 1, Start: 0, End: 5}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, leaf)
		graph.PutEdge(txn, pristine.Edge{
			Source: pristine.RootVertex, Target: leaf,
			Flags: pristine.EdgePseudo | pristine.EdgeBlock, IntroducedBy: 1,
		})
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		assert.True(t, graph.IsAlive(txn, leaf), "a PSEUDO+BLOCK parent still counts toward aliveness")
		return nil
	}))
}

func TestSplitBlockRekeyEdgesToCorrectHalf(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	v := pristine.Vertex{Change: 1, Start: 0, End: 10}
	before := pristine.Vertex{Change: 2, Start: 0, End: 1}
	after := pristine.Vertex{Change: 3, Start: 0, End: 1}

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, v)
		graph.PutVertex(txn, before)
		graph.PutVertex(txn, after)
		graph.PutEdge(txn, pristine.Edge{Source: before, Target: v, Flags: pristine.EdgeBlock, IntroducedBy: 2})
		graph.PutEdge(txn, pristine.Edge{Source: v, Target: after, Flags: pristine.EdgeBlock, IntroducedBy: 3})
		return nil
	}))

	var left, right pristine.Vertex
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		left, right = graph.SplitBlock(txn, v, 5)
		return nil
	}))

	assert.Equal(t, pristine.Vertex{Change: 1, Start: 0, End: 5}, left)
	assert.Equal(t, pristine.Vertex{Change: 1, Start: 5, End: 10}, right)

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		foundLeft, err := graph.FindBlock(txn, pristine.Position{Change: 1, Pos: 2})
		require.NoError(t, err)
		assert.Equal(t, left, foundLeft)

		foundRight, err := graph.FindBlock(txn, pristine.Position{Change: 1, Pos: 7})
		require.NoError(t, err)
		assert.Equal(t, right, foundRight)

		beforeFwd := graph.ForwardEdges(txn, before)
		require.Len(t, beforeFwd, 1)
		assert.Equal(t, left, beforeFwd[0].Target, "edge into v.Start must move to the left half")

		afterRev := graph.ReverseEdges(txn, after)
		require.Len(t, afterRev, 1)
		assert.Equal(t, right, afterRev[0].Source, "edge out of v.End must move to the right half")

		internal := graph.ForwardEdges(txn, left)
		found := false
		for _, e := range internal {
			if e.Target == right {
				found = true
			}
		}
		assert.True(t, found, "SplitBlock must connect the two halves with a BLOCK edge")
		return nil
	}))
}
