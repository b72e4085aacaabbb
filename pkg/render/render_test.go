package render_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
)

func resolverFor(contents map[pristine.ChangeId][]byte) render.ContentsResolver {
	return func(v pristine.Vertex, buf []byte) (int, error) {
		data := contents[v.Change]
		return copy(buf, data[v.Start:v.End]), nil
	}
}

func TestRenderLinearText(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	line := pristine.Vertex{Change: 1, Start: 0, End: 4}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, line)
		graph.PutEdge(txn, pristine.Edge{Source: pristine.RootVertex, Target: line, Flags: pristine.EdgeBlock, IntroducedBy: 1})
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		g := alive.Retrieve(txn, pristine.RootVertex)
		sccOf, sccs := alive.Tarjan(g)
		rootIdx, _ := g.IndexOf(pristine.RootVertex)
		path := alive.BuildConflictTree(g, sccOf, sccOf[rootIdx])

		buf := render.NewTextBuffer()
		resolver := resolverFor(map[pristine.ChangeId][]byte{1: []byte("abcd")})
		require.NoError(t, render.Render(txn, g, sccOf, sccs, path, resolver, buf))
		assert.Equal(t, "abcd", string(buf.Bytes()))
		return nil
	}))
}

func TestRenderForkEmitsConflictMarkers(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	sideA := pristine.Vertex{Change: 2, Start: 0, End: 1}
	sideB := pristine.Vertex{Change: 3, Start: 0, End: 1}

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		graph.PutVertex(txn, sideA)
		graph.PutVertex(txn, sideB)
		graph.PutEdge(txn, pristine.Edge{Source: pristine.RootVertex, Target: sideA, Flags: pristine.EdgeBlock, IntroducedBy: 2})
		graph.PutEdge(txn, pristine.Edge{Source: pristine.RootVertex, Target: sideB, Flags: pristine.EdgeBlock, IntroducedBy: 3})
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		g := alive.Retrieve(txn, pristine.RootVertex)
		sccOf, sccs := alive.Tarjan(g)
		rootIdx, _ := g.IndexOf(pristine.RootVertex)
		path := alive.BuildConflictTree(g, sccOf, sccOf[rootIdx])

		buf := render.NewTextBuffer()
		resolver := resolverFor(map[pristine.ChangeId][]byte{2: []byte("A"), 3: []byte("B")})
		require.NoError(t, render.Render(txn, g, sccOf, sccs, path, resolver, buf))

		out := string(buf.Bytes())
		assert.Contains(t, out, "<<<<<<< 0\n")
		assert.Contains(t, out, "======= 0\n")
		assert.Contains(t, out, ">>>>>>> 0\n")
		assert.Contains(t, out, "A")
		assert.Contains(t, out, "B")
		return nil
	}))
}
