package changestore

import (
	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
)

// ContentsResolver builds a render.ContentsResolver backed by cs: given a
// vertex, it looks up the Hash of the change that introduced it (via
// pkg/channel's internal/external bijection) and slices that change's
// Contents blob, implementing spec.md §6.2's get_contents over §6.4's
// VertexBuffer contract.
func ContentsResolver(txn store.Txn, cs Changestore) render.ContentsResolver {
	return func(v pristine.Vertex, buf []byte) (int, error) {
		if v.IsRoot() {
			return 0, nil
		}
		h, ok := channel.HashOf(txn, v.Change)
		if !ok {
			return 0, &pristine.BlockNotFoundError{Position: v.StartPos()}
		}
		c, err := cs.GetChange(h)
		if err != nil {
			return 0, err
		}
		n := copy(buf, c.Contents[v.Start:v.End])
		return n, nil
	}
}
