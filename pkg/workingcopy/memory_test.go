package workingcopy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/workingcopy"
)

func TestMemoryWriteReadFile(t *testing.T) {
	m := workingcopy.NewMemory()

	w, err := m.WriteFile("a.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := m.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	mt, err := m.ModifiedTime("a.txt")
	require.NoError(t, err)
	assert.False(t, mt.IsZero())
}

func TestMemoryFileMetadata(t *testing.T) {
	m := workingcopy.NewMemory()

	_, err := m.FileMetadata("nope")
	assert.Error(t, err)

	require.NoError(t, m.CreateDirAll("dir"))
	meta, err := m.FileMetadata("dir")
	require.NoError(t, err)
	assert.True(t, meta.IsDir)

	w, err := m.WriteFile("f.txt")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, m.SetPermissions("f.txt", 0o600))
	meta, err = m.FileMetadata("f.txt")
	require.NoError(t, err)
	assert.False(t, meta.IsDir)
	assert.Equal(t, uint32(0o600), meta.Mode)
}

func TestMemoryRenameMovesFile(t *testing.T) {
	m := workingcopy.NewMemory()

	w, err := m.WriteFile("old.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, m.Rename("old.txt", "new.txt"))
	_, err = m.ReadFile("old.txt")
	assert.Error(t, err)
	data, err := m.ReadFile("new.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestMemoryRemovePathRecursive(t *testing.T) {
	m := workingcopy.NewMemory()

	require.NoError(t, m.CreateDirAll("dir"))
	w, err := m.WriteFile("dir/a.txt")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, m.RemovePath("dir", true))
	_, err = m.ReadFile("dir/a.txt")
	assert.Error(t, err)
}
