package pristine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/pristine"
)

func TestHashBytesDeterministicAndDistinct(t *testing.T) {
	h1 := pristine.HashBytes([]byte("a"))
	h2 := pristine.HashBytes([]byte("a"))
	h3 := pristine.HashBytes([]byte("b"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.False(t, h1.IsZero())
	assert.True(t, pristine.Hash{}.IsZero())
}

func TestHashStringRoundTrip(t *testing.T) {
	h := pristine.HashBytes([]byte("round trip me"))
	parsed, err := pristine.ParseHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestNextMerkleChangesWithInputAndIsOrderSensitive(t *testing.T) {
	h1 := pristine.HashBytes([]byte("one"))
	h2 := pristine.HashBytes([]byte("two"))

	m1 := pristine.NextMerkle(pristine.Merkle{}, h1)
	m2 := pristine.NextMerkle(m1, h2)
	assert.NotEqual(t, pristine.Merkle{}, m1)
	assert.NotEqual(t, m1, m2)

	reordered := pristine.NextMerkle(pristine.NextMerkle(pristine.Merkle{}, h2), h1)
	assert.NotEqual(t, m2, reordered, "folding the same two hashes in a different order must yield a different state")
}

func TestHashDirPrefixSplitsBase32(t *testing.T) {
	h := pristine.HashBytes([]byte("shard me"))
	prefix, rest := h.DirPrefix()
	assert.Len(t, prefix, 2)
	assert.Equal(t, h.String(), prefix+rest)
}

func TestEncodeDecodeUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 42, 1 << 40} {
		assert.Equal(t, v, pristine.DecodeUint64(pristine.EncodeUint64(v)))
	}
}

func TestVertexPositions(t *testing.T) {
	v := pristine.Vertex{Change: 1, Start: 5, End: 10}
	assert.Equal(t, pristine.Position{Change: 1, Pos: 5}, v.StartPos())
	assert.Equal(t, pristine.Position{Change: 1, Pos: 10}, v.EndPos())
	assert.Equal(t, uint64(5), v.Len())
	assert.True(t, v.Contains(7))
	assert.False(t, v.Contains(10))
	assert.False(t, v.IsRoot())
	assert.True(t, pristine.RootVertex.IsRoot())
}

func TestEdgeFlagsReverseTogglesParentBit(t *testing.T) {
	f := pristine.EdgeBlock
	assert.False(t, f.Has(pristine.EdgeParent))
	assert.True(t, f.Reverse().Has(pristine.EdgeParent))
	assert.Equal(t, f, f.Reverse().Reverse())
}
