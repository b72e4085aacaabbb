package pristine

import (
	"encoding/base32"

	"golang.org/x/crypto/blake2b"
)

// hashEncoding is the base32 alphabet used for on-disk change-file names
// and CLI-facing hash prefixes (spec.md §6.5: "Hash: base32-encoded, fixed
// length; comparable as bytes").
var hashEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// HashBytes computes the content-addressed Hash of a serialized change
// body. The original implementation uses a BLAKE family digest; this
// module uses blake2b-256 from golang.org/x/crypto, the pack's available
// equivalent.
func HashBytes(data []byte) Hash {
	return Hash(blake2b.Sum256(data))
}

func (h Hash) String() string {
	return hashEncoding.EncodeToString(h[:])
}

// ParseHash decodes a base32 string produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	b, err := hashEncoding.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

func (m Merkle) String() string {
	return hashEncoding.EncodeToString(m[:])
}

// NextMerkle folds a newly applied change's hash into the previous channel
// state, producing the new rolling Merkle digest (spec.md §3.1).
func NextMerkle(prev Merkle, h Hash) Merkle {
	buf := make([]byte, 0, len(prev)+len(h))
	buf = append(buf, prev[:]...)
	buf = append(buf, h[:]...)
	return Merkle(blake2b.Sum256(buf))
}

// DirPrefix returns the two-level directory prefix a filesystem changestore
// uses to shard change files: the first two base32 characters of the hash,
// then the rest (spec.md §6.2).
func (h Hash) DirPrefix() (string, string) {
	full := h.String()
	if len(full) < 2 {
		return full, ""
	}
	return full[:2], full[2:]
}
