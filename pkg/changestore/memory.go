package changestore

import (
	"sync"

	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/pristine"
)

// MemoryChangestore is an in-memory Changestore for tests.
type MemoryChangestore struct {
	mu      sync.Mutex
	changes map[pristine.Hash]apply.Change
}

func NewMemoryChangestore() *MemoryChangestore {
	return &MemoryChangestore{changes: make(map[pristine.Hash]apply.Change)}
}

func (m *MemoryChangestore) SaveChange(c apply.Change) (pristine.Hash, error) {
	if c.Hash.IsZero() {
		raw, err := encodeChange(c)
		if err != nil {
			return pristine.Hash{}, err
		}
		c.Hash = pristine.HashBytes(raw)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes[c.Hash] = c
	return c.Hash, nil
}

func (m *MemoryChangestore) GetChange(h pristine.Hash) (apply.Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.changes[h]
	if !ok {
		return apply.Change{}, &pristine.ChangeNotOnChannelError{Hash: h}
	}
	return c, nil
}

func (m *MemoryChangestore) GetHeader(h pristine.Hash) (ChangeHeader, error) {
	c, err := m.GetChange(h)
	if err != nil {
		return ChangeHeader{}, err
	}
	return ChangeHeader{Hash: c.Hash, Dependencies: c.Dependencies}, nil
}

func (m *MemoryChangestore) GetFileMeta(resolver PositionResolver, v pristine.Vertex, buf []byte) (FileMetadata, error) {
	return getFileMeta(m, resolver, v, buf)
}

func (m *MemoryChangestore) ChangeDeletesPosition(resolver PositionResolver, change pristine.ChangeId, pos pristine.Position) ([]pristine.Hash, error) {
	return changeDeletesPosition(m, resolver, change, pos)
}

func (m *MemoryChangestore) HasContents(h pristine.Hash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.changes[h]
	return ok
}

func (m *MemoryChangestore) DelChange(h pristine.Hash) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.changes[h]; !ok {
		return false, nil
	}
	delete(m.changes, h)
	return true, nil
}
