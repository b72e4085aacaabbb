package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

func TestTreeAndInodeBijections(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	pos := pristine.Position{Change: 1, Pos: 3}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		putTree(txn, pristine.RootInode, "a.txt", 2)
		putInode(txn, 2, pos)
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		inode, ok := getTree(txn, pristine.RootInode, "a.txt")
		require.True(t, ok)
		assert.Equal(t, pristine.Inode(2), inode)

		parent, basename, ok := getRevtree(txn, 2)
		require.True(t, ok)
		assert.Equal(t, pristine.RootInode, parent)
		assert.Equal(t, "a.txt", basename)

		gotPos, ok := getInode(txn, 2)
		require.True(t, ok)
		assert.Equal(t, pos, gotPos)

		gotInode, ok := getRevinode(txn, pos)
		require.True(t, ok)
		assert.Equal(t, pristine.Inode(2), gotInode)
		return nil
	}))

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		delTree(txn, pristine.RootInode, "a.txt", 2)
		delInode(txn, 2, pos)
		return nil
	}))

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		_, ok := getTree(txn, pristine.RootInode, "a.txt")
		assert.False(t, ok)
		_, ok = getInode(txn, 2)
		assert.False(t, ok)
		return nil
	}))
}

func TestCreateNewInodeIsStableAndSkipsRoot(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	var first, second pristine.Inode
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		first = createNewInode(txn, pristine.RootInode, "a.txt", 42)
		second = createNewInode(txn, pristine.RootInode, "a.txt", 42)
		return nil
	}))
	assert.Equal(t, first, second, "createNewInode must be deterministic for the same (parent,basename,salt) absent a collision")
	assert.NotEqual(t, pristine.RootInode, first)
}

func TestCreateNewInodeResolvesCollisions(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	var first, second pristine.Inode
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		first = createNewInode(txn, pristine.RootInode, "a.txt", 1)
		putTree(txn, pristine.RootInode, "a.txt", first)
		second = createNewInode(txn, pristine.RootInode, "a.txt", 1)
		return nil
	}))
	assert.NotEqual(t, first, second)
}

func TestMoveOrCreateAssignsThenMoves(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	pos := pristine.Position{Change: 1, Pos: 0}
	item := OutputItem{Pos: pos, Parent: pristine.RootInode, Path: "a.txt"}

	var inode pristine.Inode
	var moves [][2]string
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		inode = moveOrCreate(txn, nil, item, 0, false, &moves)
		return nil
	}))
	assert.NotEqual(t, pristine.Inode(0), inode)
	assert.Empty(t, moves)

	renamed := OutputItem{Pos: pos, Parent: pristine.RootInode, Path: "b.txt"}
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		got := moveOrCreate(txn, nil, renamed, inode, true, &moves)
		assert.Equal(t, inode, got, "moveOrCreate must preserve the inode across a rename")
		return nil
	}))
	require.Len(t, moves, 1)
	assert.Equal(t, "b.txt", renamed.Path)

	require.NoError(t, store.WithRead(ctx, s, func(txn store.Txn) error {
		got, ok := getTree(txn, pristine.RootInode, "b.txt")
		require.True(t, ok)
		assert.Equal(t, inode, got)
		_, ok = getTree(txn, pristine.RootInode, "a.txt")
		assert.False(t, ok, "the old tree slot must be vacated on rename")
		return nil
	}))
}

func TestMakeConflictingNameSuffixesChangeId(t *testing.T) {
	v := pristine.Vertex{Change: 7, Start: 0, End: 1}
	assert.Equal(t, "dir/a.txt.7", makeConflictingName("dir", "a.txt", v))
	assert.Equal(t, "a.txt.7", makeConflictingName("", "a.txt", v))
}

func TestBasenameAndParentOf(t *testing.T) {
	assert.Equal(t, "a.txt", basenameOf("dir/sub/a.txt"))
	assert.Equal(t, "a.txt", basenameOf("a.txt"))
	assert.Equal(t, "dir/sub", parentOf("dir/sub/a.txt"))
	assert.Equal(t, "", parentOf("a.txt"))
}
