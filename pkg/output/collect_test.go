package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

func TestCollectChildrenResolvesNameAndContentPosition(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	ctx := context.Background()

	// nameVertexMeta packs mode into a single byte, so only values below
	// 256 round-trip through decodeNameVertexMeta without truncation.
	const mode = 0o77
	nameBytes := nameVertexMeta("a.txt", false, mode)
	content := append(append([]byte(nil), nameBytes...), []byte("body")...)
	h, err := cs.SaveChange(apply.Change{Contents: content})
	require.NoError(t, err)

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		id := channel.Intern(txn, h)

		nameVertex := pristine.Vertex{Change: id, Start: 0, End: pristine.ChangePosition(len(nameBytes))}
		graph.PutVertex(txn, nameVertex)
		graph.PutEdge(txn, pristine.Edge{Source: pristine.RootVertex, Target: nameVertex, Flags: pristine.EdgeFolder, IntroducedBy: id})

		childVertex := pristine.Vertex{Change: id, Start: nameVertex.End, End: pristine.ChangePosition(len(content))}
		graph.PutVertex(txn, childVertex)
		graph.PutEdge(txn, pristine.Edge{Source: nameVertex, Target: childVertex, Flags: pristine.EdgeFolder, IntroducedBy: id})
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		children := collectChildren(txn, cs, pristine.RootVertex.StartPos(), pristine.RootInode, "")
		require.Contains(t, children, "a.txt")
		cands := children["a.txt"]
		require.Len(t, cands, 1)
		assert.False(t, cands[0].item.Meta.IsDir)
		assert.Equal(t, uint32(mode), cands[0].item.Meta.Mode)
		assert.False(t, cands[0].item.IsZombie)
		assert.Equal(t, pristine.ChangePosition(len(nameBytes)), cands[0].item.Pos.Pos)
		return nil
	}))
}

func TestCollectDeadFilesAndKill(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()
	wc := workingcopy.NewMemory()

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		putTree(txn, pristine.RootInode, "gone.txt", 2)
		// No putInode call: an inode with no graph position is dead by
		// definition (collectDeadFiles' hasPos branch).
		return nil
	}))

	w, err := wc.WriteFile("gone.txt")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		dead := collectDeadFiles(txn, pristine.RootInode)
		require.Contains(t, dead, treeEntry{parent: pristine.RootInode, basename: "gone.txt"})
		return nil
	}))

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		dead := collectDeadFiles(txn, pristine.RootInode)
		return killDeadFiles(txn, wc, dead)
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		_, ok := getTree(txn, pristine.RootInode, "gone.txt")
		assert.False(t, ok)
		return nil
	}))

	_, err = wc.ReadFile("gone.txt")
	assert.Error(t, err, "killDeadFiles must remove the dead file from the working copy too")
}
