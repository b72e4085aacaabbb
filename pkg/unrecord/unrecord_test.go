package unrecord_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/record"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
	"github.com/orneryd/pristine/pkg/unrecord"
)

func render_(t *testing.T, s store.Store, cs changestore.Changestore) string {
	t.Helper()
	txn, err := s.BeginRead(context.Background())
	require.NoError(t, err)
	defer txn.Abort()

	resolver := changestore.ContentsResolver(txn, cs)
	g := alive.Retrieve(txn, pristine.RootVertex)
	sccOf, sccs := alive.Tarjan(g)
	rootIdx, _ := g.IndexOf(pristine.RootVertex)
	path := alive.BuildConflictTree(g, sccOf, sccOf[rootIdx])

	buf := render.NewTextBuffer()
	require.NoError(t, render.Render(txn, g, sccOf, sccs, path, resolver, buf))
	return string(buf.Bytes())
}

func recordAndApply(t *testing.T, s store.Store, cs changestore.Changestore, tel *telemetry.Telemetry, channelName string, content []byte, deps []pristine.Hash) pristine.Hash {
	t.Helper()
	ctx := context.Background()

	txn, err := s.BeginWrite(ctx)
	require.NoError(t, err)
	resolver := changestore.ContentsResolver(txn, cs)
	c, err := record.Record(txn, pristine.RootVertex, content, resolver)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	c.Dependencies = deps
	h, err := cs.SaveChange(c)
	require.NoError(t, err)
	c.Hash = h

	_, err = apply.Apply(ctx, s, tel, channelName, c)
	require.NoError(t, err)
	return h
}

func TestUnrecordRefusesDependedUponChange(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})

	h1 := recordAndApply(t, s, cs, tel, "main", []byte("one\ntwo\n"), nil)
	recordAndApply(t, s, cs, tel, "main", []byte("one\ntwo\nthree\n"), []pristine.Hash{h1})

	require.Equal(t, "one\ntwo\nthree\n", render_(t, s, cs))

	err := unrecord.Unrecord(context.Background(), s, cs, tel, "main", h1)
	require.Error(t, err)
	var dependedUpon *pristine.ChangeIsDependedUponError
	assert.ErrorAs(t, err, &dependedUpon)
}

func TestUnrecordUndoesAtoms(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})

	h1 := recordAndApply(t, s, cs, tel, "main", []byte("one\ntwo\n"), nil)
	require.Equal(t, "one\ntwo\n", render_(t, s, cs))

	require.NoError(t, unrecord.Unrecord(context.Background(), s, cs, tel, "main", h1))
	assert.Equal(t, "", render_(t, s, cs))
}

func TestUnrecordRejectsUnknownChange(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	tel := telemetry.New(telemetry.NopLogger{})

	h := pristine.HashBytes([]byte("never recorded"))
	err := unrecord.Unrecord(context.Background(), s, cs, tel, "main", h)
	require.Error(t, err)
	var notOnChannel *pristine.ChangeNotOnChannelError
	assert.ErrorAs(t, err, &notOnChannel)
}
