package repo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/config"
	"github.com/orneryd/pristine/pkg/repo"
)

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, path), []byte(content), 0o644))
}

func TestRecordFileThenLog(t *testing.T) {
	root := t.TempDir()
	cfg := config.LoadFromEnv()
	cfg.Store.UseMemoryStore = true
	r, err := repo.Open(root, cfg)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, root, "a.txt", "hello\n")
	ctx := context.Background()

	h, err := r.RecordFile(ctx, "main", "a.txt")
	require.NoError(t, err)
	assert.False(t, h.IsZero())

	entries, err := r.Log(ctx, "main")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, h, entries[0].Hash)
	assert.Empty(t, entries[0].Dependencies)
}

func TestRecordFileRejectsNoOpEdit(t *testing.T) {
	root := t.TempDir()
	cfg := config.LoadFromEnv()
	cfg.Store.UseMemoryStore = true
	r, err := repo.Open(root, cfg)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, root, "a.txt", "hello\n")
	ctx := context.Background()

	_, err = r.RecordFile(ctx, "main", "a.txt")
	require.NoError(t, err)

	_, err = r.RecordFile(ctx, "main", "a.txt")
	assert.Error(t, err, "recording unchanged content a second time must report nothing to record")
}

func TestRecordEditThenUnrecord(t *testing.T) {
	root := t.TempDir()
	cfg := config.LoadFromEnv()
	cfg.Store.UseMemoryStore = true
	r, err := repo.Open(root, cfg)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, root, "a.txt", "one\n")
	ctx := context.Background()

	h1, err := r.RecordFile(ctx, "main", "a.txt")
	require.NoError(t, err)

	writeFile(t, root, "a.txt", "one\ntwo\n")
	h2, err := r.RecordFile(ctx, "main", "a.txt")
	require.NoError(t, err)

	out, err := r.RenderChannel(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(out))

	err = r.Unrecord(ctx, "main", h1)
	require.Error(t, err, "h1 is depended upon by h2 and must not be unrecordable yet")

	require.NoError(t, r.Unrecord(ctx, "main", h2))
	out, err = r.RenderChannel(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(out))
}

func TestCreateChannelRejectsNonEmpty(t *testing.T) {
	root := t.TempDir()
	cfg := config.LoadFromEnv()
	cfg.Store.UseMemoryStore = true
	r, err := repo.Open(root, cfg)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.CreateChannel(ctx, "empty"))

	writeFile(t, root, "a.txt", "hello\n")
	_, err = r.RecordFile(ctx, "main", "a.txt")
	require.NoError(t, err)

	err = r.CreateChannel(ctx, "main")
	assert.Error(t, err, "a channel already carrying changes must not be recreated")
}

func TestForkChannelCopiesHistory(t *testing.T) {
	root := t.TempDir()
	cfg := config.LoadFromEnv()
	cfg.Store.UseMemoryStore = true
	r, err := repo.Open(root, cfg)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, root, "a.txt", "hello\n")
	ctx := context.Background()

	h, err := r.RecordFile(ctx, "main", "a.txt")
	require.NoError(t, err)

	require.NoError(t, r.ForkChannel(ctx, "main", "feature"))

	entries, err := r.Log(ctx, "feature")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, h, entries[0].Hash)

	require.NoError(t, r.CreateChannel(ctx, "brand-new"))
	err = r.CreateChannel(ctx, "feature")
	assert.Error(t, err, "a channel that already has a change on it must not be recreated")
}
