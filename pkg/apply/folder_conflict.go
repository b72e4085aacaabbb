package apply

import (
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// detectFolderConflictResolutions walks every folder vertex touched by a
// DELETED FOLDER edge during this apply and, if the folder is now
// childless (every remaining child edge is also DELETED), removes its own
// PSEUDO folder-parent edges. A folder kept alive only by a PSEUDO edge
// and now holding nothing is exactly the dangling-empty-directory case
// spec.md §4.2.4 calls out; cleaning its own pseudo-parents lets it fall
// out of the alive subgraph on its own rather than lingering forever.
func detectFolderConflictResolutions(txn store.Txn, ws *Workspace) {
	for _, folder := range ws.touchedFolders {
		if folderHasLiveChild(txn, folder) {
			continue
		}
		for _, parent := range graph.ReverseEdges(txn, folder) {
			if parent.Flags.Has(pristine.EdgePseudo) && parent.Flags.Has(pristine.EdgeFolder) {
				graph.DelEdge(txn, parent)
			}
		}
	}
}

func folderHasLiveChild(txn store.Txn, folder pristine.Vertex) bool {
	for _, e := range graph.ForwardEdges(txn, folder) {
		if e.Flags.Has(pristine.EdgeFolder) && !e.Flags.Has(pristine.EdgeDeleted) {
			return true
		}
	}
	return false
}
