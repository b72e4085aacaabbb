package apply

import (
	"context"

	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
)

// Apply applies c to channelName inside a single write transaction,
// committing only if every atom is consistent and every dependency is
// already present (spec.md §4.2, §7). A change already on the channel is
// reported via ChangeAlreadyOnChannelError and the transaction is aborted
// without effect (P4).
func Apply(ctx context.Context, s store.Store, tel *telemetry.Telemetry, channelName string, c Change) (pristine.ChangeId, error) {
	stop := tel.StartTimer("apply")
	defer stop()

	var id pristine.ChangeId
	err := store.WithWrite(ctx, s, func(txn store.Txn) error {
		var innerErr error
		id, innerErr = applyTxn(txn, channelName, c)
		return innerErr
	})
	return id, err
}

func applyTxn(txn store.Txn, channelName string, c Change) (pristine.ChangeId, error) {
	id := channel.Intern(txn, c.Hash)
	if channel.IsOnChannel(txn, channelName, id) {
		return id, &pristine.ChangeAlreadyOnChannelError{Hash: c.Hash}
	}

	depIds := make([]pristine.ChangeId, 0, len(c.Dependencies))
	for _, depHash := range c.Dependencies {
		depId := channel.Intern(txn, depHash)
		if !channel.IsOnChannel(txn, channelName, depId) {
			return 0, &pristine.ChangeNotOnChannelError{Hash: depHash}
		}
		depIds = append(depIds, depId)
	}

	atoms := RemapSelfReferences(c.Atoms, id)

	var ws Workspace
	for _, atom := range atoms {
		if err := applyAtom(&ws, txn, id, atom); err != nil {
			return 0, err
		}
	}

	repairMissingContext(txn, id, &ws)
	detectFolderConflictResolutions(txn, &ws)
	cleanObsoletePseudoEdges(txn, &ws)
	repairCyclicPaths(txn, &ws)
	ws.clear()

	channel.RecordOnChannel(txn, channelName, id, c.Hash, depIds)
	return id, nil
}

func applyAtom(ws *Workspace, txn store.Txn, id pristine.ChangeId, atom Atom) error {
	switch a := atom.(type) {
	case NewVertex:
		v := pristine.Vertex{Change: id, Start: a.Start.Start, End: a.Start.End}
		graph.PutVertex(txn, v)
		for _, up := range a.Up {
			if err := putNewEdge(ws, txn, id, NewEdge{
				From: up.Position,
				To:   v.StartPos(),
				Flag: a.Flags | up.Flags,
			}); err != nil {
				return err
			}
		}
		for _, down := range a.Down {
			if err := putNewEdge(ws, txn, id, NewEdge{
				From: v.EndPos(),
				To:   down.Position,
				Flag: a.Flags | down.Flags,
			}); err != nil {
				return err
			}
		}
		return nil
	case EdgeMap:
		for _, e := range a.Edges {
			if err := putNewEdge(ws, txn, id, e); err != nil {
				return err
			}
		}
		return nil
	case Replacement:
		if err := applyAtom(ws, txn, id, a.Deletion); err != nil {
			return err
		}
		return applyAtom(ws, txn, id, a.Insertion)
	default:
		return &pristine.InvalidChangeError{Reason: "unknown atom kind"}
	}
}
