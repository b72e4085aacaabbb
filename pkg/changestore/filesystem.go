package changestore

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/pristine"
)

// FilesystemChangestore stores each change as a single zstd-compressed
// file under a two-level directory prefix derived from its hash
// (spec.md §6.2: "XX/YYYY… where XX is the first two base32 characters of
// the hash"). A bounded in-process cache of decoded changes avoids
// re-decompressing hot changes during output/apply-heavy workloads.
type FilesystemChangestore struct {
	root string

	mu    sync.Mutex
	cache map[pristine.Hash]apply.Change
	order []pristine.Hash
	limit int
}

func NewFilesystemChangestore(root string) (*FilesystemChangestore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemChangestore{
		root:  root,
		cache: make(map[pristine.Hash]apply.Change),
		limit: 256,
	}, nil
}

func (f *FilesystemChangestore) pathFor(h pristine.Hash) string {
	dir, rest := h.DirPrefix()
	return filepath.Join(f.root, dir, rest)
}

func (f *FilesystemChangestore) SaveChange(c apply.Change) (pristine.Hash, error) {
	raw, err := encodeChange(c)
	if err != nil {
		return pristine.Hash{}, err
	}
	if c.Hash.IsZero() {
		c.Hash = pristine.HashBytes(raw)
	}
	path := f.pathFor(c.Hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pristine.Hash{}, err
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return pristine.Hash{}, err
	}
	enc, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return pristine.Hash{}, err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		file.Close()
		return pristine.Hash{}, err
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return pristine.Hash{}, err
	}
	if err := file.Close(); err != nil {
		return pristine.Hash{}, err
	}
	// Atomic rename keeps the changestore crash-consistent (spec.md §9,
	// "Atomic file writes").
	if err := os.Rename(tmp, path); err != nil {
		return pristine.Hash{}, err
	}

	f.put(c)
	return c.Hash, nil
}

func (f *FilesystemChangestore) GetChange(h pristine.Hash) (apply.Change, error) {
	if c, ok := f.get(h); ok {
		return c, nil
	}
	path := f.pathFor(h)
	file, err := os.Open(path)
	if err != nil {
		return apply.Change{}, err
	}
	defer file.Close()
	dec, err := zstd.NewReader(file)
	if err != nil {
		return apply.Change{}, err
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return apply.Change{}, err
	}
	c, err := decodeChange(raw)
	if err != nil {
		return apply.Change{}, err
	}
	f.put(c)
	return c, nil
}

func (f *FilesystemChangestore) GetHeader(h pristine.Hash) (ChangeHeader, error) {
	c, err := f.GetChange(h)
	if err != nil {
		return ChangeHeader{}, err
	}
	return ChangeHeader{Hash: c.Hash, Dependencies: c.Dependencies}, nil
}

func (f *FilesystemChangestore) GetFileMeta(resolver PositionResolver, v pristine.Vertex, buf []byte) (FileMetadata, error) {
	return getFileMeta(f, resolver, v, buf)
}

func (f *FilesystemChangestore) ChangeDeletesPosition(resolver PositionResolver, change pristine.ChangeId, pos pristine.Position) ([]pristine.Hash, error) {
	return changeDeletesPosition(f, resolver, change, pos)
}

func (f *FilesystemChangestore) HasContents(h pristine.Hash) bool {
	_, err := os.Stat(f.pathFor(h))
	return err == nil
}

func (f *FilesystemChangestore) DelChange(h pristine.Hash) (bool, error) {
	path := f.pathFor(h)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	f.mu.Lock()
	delete(f.cache, h)
	f.mu.Unlock()
	return true, nil
}

func (f *FilesystemChangestore) get(h pristine.Hash) (apply.Change, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cache[h]
	if ok {
		// A hit makes h the most recently used entry.
		for i, o := range f.order {
			if o == h {
				f.order = append(append(f.order[:i:i], f.order[i+1:]...), h)
				break
			}
		}
	}
	return c, ok
}

func (f *FilesystemChangestore) put(c apply.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cache[c.Hash]; !ok {
		f.order = append(f.order, c.Hash)
		if len(f.order) > f.limit {
			evict := f.order[0]
			f.order = f.order[1:]
			delete(f.cache, evict)
		}
	}
	f.cache[c.Hash] = c
}
