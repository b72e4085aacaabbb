// Package graph implements the graph primitives of spec.md §4.1: symmetric
// edge storage in the "graph" table, find_block/split_block for locating
// and splitting vertices by byte position, and is_alive. There is no
// separate find_block_end; pkg/apply's resolveUp locates a vertex by its
// end through FindBlock.
// Everything above this layer (pkg/apply, pkg/alive, pkg/record,
// pkg/unrecord) is built only from these primitives plus the Store
// capability in pkg/store — no package above this one touches table keys
// directly.
package graph

import (
	"github.com/orneryd/pristine/pkg/pristine"
)

// Every entry in the TableGraph multi-map is one directed edge copy. Each
// logical edge is stored twice: once keyed by its source vertex (the
// "forward" direction, used to walk children) and once keyed by its target
// vertex (the "reverse" direction, used to walk parents) with the PARENT
// bit toggled in its flags. This is the symmetric storage spec.md §3.2 and
// P1 require.
//
// Forward key:  0x01 || srcChange(8) || srcStart(8) || tgtChange(8) || tgtStart(8)
// Reverse key:  0x02 || tgtChange(8) || tgtStart(8) || srcChange(8) || srcStart(8)
//
// The leading byte distinguishes direction so a prefix scan over just the
// vertex's (change,start) can still be split into "children" vs "parents"
// without decoding every value.
const (
	dirForward byte = 0x01
	dirReverse byte = 0x02
)

func vertexKeyPrefix(dir byte, v pristine.Vertex) []byte {
	key := make([]byte, 0, 17)
	key = append(key, dir)
	key = append(key, pristine.EncodeUint64(uint64(v.Change))...)
	key = append(key, pristine.EncodeUint64(uint64(v.Start))...)
	return key
}

func edgeKey(dir byte, self, other pristine.Vertex) []byte {
	key := vertexKeyPrefix(dir, self)
	key = append(key, pristine.EncodeUint64(uint64(other.Change))...)
	key = append(key, pristine.EncodeUint64(uint64(other.Start))...)
	return key
}

// edgeValue encodes the half of the Edge not already captured by the key:
// the two vertices' End offsets (vertices are identified by Change+Start
// in the key, but the graph must still recover their full half-open
// range), the flags as stored for *this* copy, and the originating
// ChangeId.
func encodeEdgeValue(selfEnd, otherEnd pristine.ChangePosition, flags pristine.EdgeFlags, introducedBy pristine.ChangeId) []byte {
	v := make([]byte, 0, 25)
	v = append(v, pristine.EncodeUint64(uint64(selfEnd))...)
	v = append(v, pristine.EncodeUint64(uint64(otherEnd))...)
	v = append(v, byte(flags))
	v = append(v, pristine.EncodeUint64(uint64(introducedBy))...)
	return v
}

func decodeEdgeValue(v []byte) (selfEnd, otherEnd pristine.ChangePosition, flags pristine.EdgeFlags, introducedBy pristine.ChangeId) {
	selfEnd = pristine.ChangePosition(pristine.DecodeUint64(v[0:8]))
	otherEnd = pristine.ChangePosition(pristine.DecodeUint64(v[8:16]))
	flags = pristine.EdgeFlags(v[16])
	introducedBy = pristine.ChangeId(pristine.DecodeUint64(v[17:25]))
	return
}
