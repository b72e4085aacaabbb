package apply_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/record"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
	"github.com/orneryd/pristine/pkg/unrecord"
)

func renderRoot(t *testing.T, s store.Store, cs changestore.Changestore) string {
	t.Helper()
	txn, err := s.BeginRead(context.Background())
	require.NoError(t, err)
	defer txn.Abort()

	resolver := changestore.ContentsResolver(txn, cs)
	g := alive.Retrieve(txn, pristine.RootVertex)
	sccOf, sccs := alive.Tarjan(g)
	rootIdx, ok := g.IndexOf(pristine.RootVertex)
	require.True(t, ok)
	path := alive.BuildConflictTree(g, sccOf, sccOf[rootIdx])

	buf := render.NewTextBuffer()
	require.NoError(t, render.Render(txn, g, sccOf, sccs, path, resolver, buf))
	return string(buf.Bytes())
}

func recordAndApply(t *testing.T, s store.Store, cs changestore.Changestore, tel *telemetry.Telemetry, channelName string, content []byte) pristine.Hash {
	t.Helper()
	ctx := context.Background()

	var c apply.Change
	txn, err := s.BeginWrite(ctx)
	require.NoError(t, err)
	resolver := changestore.ContentsResolver(txn, cs)
	c, err = record.Record(txn, pristine.RootVertex, content, resolver)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	h, err := cs.SaveChange(c)
	require.NoError(t, err)
	c.Hash = h

	_, err = apply.Apply(ctx, s, tel, channelName, c)
	require.NoError(t, err)
	return h
}

func TestRecordApplyRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})

	recordAndApply(t, s, cs, tel, "main", []byte("hello\nworld\n"))
	assert.Equal(t, "hello\nworld\n", renderRoot(t, s, cs))
}

func TestRecordApplyThenEdit(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})

	recordAndApply(t, s, cs, tel, "main", []byte("one\ntwo\nthree\n"))
	recordAndApply(t, s, cs, tel, "main", []byte("one\ntwo\nfour\nthree\n"))

	assert.Equal(t, "one\ntwo\nfour\nthree\n", renderRoot(t, s, cs))
}

func TestApplyRejectsDuplicateChange(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})

	ctx := context.Background()
	txn, err := s.BeginWrite(ctx)
	require.NoError(t, err)
	resolver := changestore.ContentsResolver(txn, cs)
	c, err := record.Record(txn, pristine.RootVertex, []byte("a\n"), resolver)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	h, err := cs.SaveChange(c)
	require.NoError(t, err)
	c.Hash = h

	_, err = apply.Apply(ctx, s, tel, "main", c)
	require.NoError(t, err)

	_, err = apply.Apply(ctx, s, tel, "main", c)
	require.Error(t, err)
	var alreadyOn *pristine.ChangeAlreadyOnChannelError
	assert.ErrorAs(t, err, &alreadyOn)
}

func TestApplyRejectsMissingDependency(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	tel := telemetry.New(telemetry.NopLogger{})

	missing := pristine.HashBytes([]byte("nonexistent"))
	c := apply.Change{
		Hash:         pristine.HashBytes([]byte("depends-on-nothing-real")),
		Dependencies: []pristine.Hash{missing},
	}
	_, err := apply.Apply(context.Background(), s, tel, "main", c)
	require.Error(t, err)
	var notOnChannel *pristine.ChangeNotOnChannelError
	assert.ErrorAs(t, err, &notOnChannel)
}

// TestReplacementApplyAndUnrecord builds a second change whose single atom
// is a Replacement (a same-line deletion merged with its replacing
// insertion) directly, bypassing pkg/record, and checks that applying it
// swaps the content and that unrecording it restores the original line
// exactly — the round trip pkg/unrecord's Replacement case (undo the
// insertion, then must_reintroduce the deletion) must get right.
func TestReplacementApplyAndUnrecord(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})
	ctx := context.Background()

	recordAndApply(t, s, cs, tel, "main", []byte("abcd"))
	assert.Equal(t, "abcd", renderRoot(t, s, cs))

	var v1 pristine.Vertex
	txn, err := s.BeginRead(ctx)
	require.NoError(t, err)
	fwd := graph.ForwardEdges(txn, pristine.RootVertex)
	require.Len(t, fwd, 1)
	v1 = fwd[0].Target
	txn.Abort()

	c2 := apply.Change{
		Contents: []byte("wxyz"),
		Atoms: []apply.Atom{
			apply.Replacement{
				Deletion: apply.EdgeMap{Edges: []apply.NewEdge{{
					From:     pristine.RootVertex.EndPos(),
					To:       v1.StartPos(),
					Previous: pristine.EdgeBlock,
					Flag:     pristine.EdgeBlock | pristine.EdgeDeleted,
				}}},
				Insertion: apply.NewVertex{
					Start: apply.ChangePosRange{Start: 0, End: 4},
					Up:    []apply.EdgeTarget{{Position: pristine.RootVertex.EndPos()}},
					Flags: pristine.EdgeBlock,
				},
			},
		},
	}
	h2, err := cs.SaveChange(c2)
	require.NoError(t, err)
	c2.Hash = h2

	_, err = apply.Apply(ctx, s, tel, "main", c2)
	require.NoError(t, err)
	assert.Equal(t, "wxyz", renderRoot(t, s, cs))

	require.NoError(t, unrecord.Unrecord(ctx, s, cs, tel, "main", h2))
	assert.Equal(t, "abcd", renderRoot(t, s, cs))
}
