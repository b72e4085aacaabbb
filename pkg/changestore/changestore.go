// Package changestore implements spec.md §6.2: byte-addressable storage of
// serialized changes keyed by hash. The serialized format itself is an
// explicit Non-goal ("does not prescribe the serialized change file
// format"), so this package uses encoding/gob for the on-disk
// representation — plain stdlib, justified in DESIGN.md since no pack
// example repo serializes a domain object to a private file format this
// way (the teacher's own on-disk formats are all handled inside badger).
package changestore

import (
	"bytes"
	"encoding/gob"

	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/pristine"
)

// Changestore is the external collaborator spec.md §6.2 specifies by
// interface only.
type Changestore interface {
	SaveChange(c apply.Change) (pristine.Hash, error)
	GetChange(h pristine.Hash) (apply.Change, error)
	GetHeader(h pristine.Hash) (ChangeHeader, error)
	GetFileMeta(resolver PositionResolver, v pristine.Vertex, buf []byte) (FileMetadata, error)
	ChangeDeletesPosition(resolver PositionResolver, change pristine.ChangeId, pos pristine.Position) ([]pristine.Hash, error)
	HasContents(h pristine.Hash) bool
	DelChange(h pristine.Hash) (bool, error)
}

// PositionResolver resolves a ChangeId to the Hash of the change that
// introduced it, the same internal/external bijection ContentsResolver
// uses (backed in practice by pkg/channel's internal/external tables).
type PositionResolver func(pristine.ChangeId) (pristine.Hash, bool)

// FileMetadata is the (permissions, is_dir) pair spec.md §6.2's
// get_file_meta returns. This engine's atoms carry line content only —
// no NewVertex/EdgeMap/Replacement atom records per-file permissions —
// so every non-root vertex reports the zero-value (regular file,
// mode 0); ROOT reports IsDir. A tree/permissions atom is the natural
// place to carry real metadata if this engine ever models file moves or
// mode changes.
type FileMetadata struct {
	Mode  uint32
	IsDir bool
}

// changeDeletesPosition is the shared implementation of
// Changestore.ChangeDeletesPosition: it loads the change identified by
// change (via resolver) and returns that change's hash, once for every
// DELETED edge targeting pos among its own atoms (nil when none does, or
// when resolver does not know change). Only that one change is scanned;
// other changes deleting pos are not looked up. This is what must_reintroduce
// (pkg/unrecord) walks to decide whether an edge removed by an unrecorded
// change is still accounted for by some other change still on the
// channel (spec.md §4.5, grounded in the original implementation's
// change_deletes_position in changestore/filesystem.rs).
func changeDeletesPosition(cs Changestore, resolver PositionResolver, change pristine.ChangeId, pos pristine.Position) ([]pristine.Hash, error) {
	hash, ok := resolver(change)
	if !ok {
		return nil, nil
	}
	c, err := cs.GetChange(hash)
	if err != nil {
		return nil, err
	}
	var out []pristine.Hash
	for _, atom := range c.Atoms {
		collectDeletesPosition(atom, pos, hash, &out)
	}
	return out, nil
}

func collectDeletesPosition(atom apply.Atom, pos pristine.Position, owner pristine.Hash, out *[]pristine.Hash) {
	switch a := atom.(type) {
	case apply.EdgeMap:
		for _, e := range a.Edges {
			if e.Flag.Has(pristine.EdgeDeleted) && e.To == pos {
				*out = append(*out, owner)
			}
		}
	case apply.Replacement:
		collectDeletesPosition(a.Deletion, pos, owner, out)
	}
}

// getFileMeta is the shared implementation of Changestore.GetFileMeta.
func getFileMeta(cs Changestore, resolver PositionResolver, v pristine.Vertex, buf []byte) (FileMetadata, error) {
	if v.IsRoot() {
		return FileMetadata{IsDir: true}, nil
	}
	hash, ok := resolver(v.Change)
	if !ok {
		return FileMetadata{}, &pristine.BlockNotFoundError{Position: v.StartPos()}
	}
	if _, err := cs.GetChange(hash); err != nil {
		return FileMetadata{}, err
	}
	return FileMetadata{}, nil
}

// ChangeHeader is the metadata a caller can read without paying for the
// full change body — its own hash and dependency hashes in this
// implementation, since the message/author fields the original attaches
// are part of the out-of-scope serialized format.
type ChangeHeader struct {
	Hash         pristine.Hash
	Dependencies []pristine.Hash
}

func init() {
	gob.Register(apply.NewVertex{})
	gob.Register(apply.EdgeMap{})
	gob.Register(apply.Replacement{})
}

// encodeChange serializes a Change with gob; atoms are registered
// concrete types so the interface-typed Atoms slice round-trips.
func encodeChange(c apply.Change) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	wire := wireChange{Hash: c.Hash, Dependencies: c.Dependencies, Atoms: c.Atoms, Contents: c.Contents}
	if err := enc.Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeChange(data []byte) (apply.Change, error) {
	var wire wireChange
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wire); err != nil {
		return apply.Change{}, err
	}
	return apply.Change{Hash: wire.Hash, Dependencies: wire.Dependencies, Atoms: wire.Atoms, Contents: wire.Contents}, nil
}

type wireChange struct {
	Hash         pristine.Hash
	Dependencies []pristine.Hash
	Atoms        []apply.Atom
	Contents     []byte
}
