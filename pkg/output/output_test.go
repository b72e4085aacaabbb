package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

func TestOutputWritesSingleFile(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	wc := workingcopy.NewMemory()
	tel := telemetry.New(telemetry.NopLogger{})
	ctx := context.Background()

	nameBytes := nameVertexMeta("a.txt", false, 0o44)
	content := append(append([]byte(nil), nameBytes...), []byte("hello")...)
	h, err := cs.SaveChange(apply.Change{Contents: content})
	require.NoError(t, err)

	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		id := channel.Intern(txn, h)
		nameVertex := pristine.Vertex{Change: id, Start: 0, End: pristine.ChangePosition(len(nameBytes))}
		graph.PutVertex(txn, nameVertex)
		graph.PutEdge(txn, pristine.Edge{Source: pristine.RootVertex, Target: nameVertex, Flags: pristine.EdgeFolder, IntroducedBy: id})

		childVertex := pristine.Vertex{Change: id, Start: nameVertex.End, End: pristine.ChangePosition(len(content))}
		graph.PutVertex(txn, childVertex)
		graph.PutEdge(txn, pristine.Edge{Source: nameVertex, Target: childVertex, Flags: pristine.EdgeFolder, IntroducedBy: id})
		return nil
	}))

	conflicts, err := Output(ctx, s, cs, wc, tel, "main", Options{NWorkers: 2})
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	data, err := wc.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestOutputDropsNameConflictByDefault(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	cs := changestore.NewMemoryChangestore()
	wc := workingcopy.NewMemory()
	tel := telemetry.New(telemetry.NopLogger{})
	ctx := context.Background()

	nameBytes := nameVertexMeta("a.txt", false, 0o44)

	var firstID, secondID pristine.ChangeId
	require.NoError(t, store.WithWrite(ctx, s, func(txn store.Txn) error {
		for i, body := range [][]byte{[]byte("first"), []byte("second")} {
			content := append(append([]byte(nil), nameBytes...), body...)
			h, err := cs.SaveChange(apply.Change{Contents: content})
			require.NoError(t, err)
			id := channel.Intern(txn, h)
			if i == 0 {
				firstID = id
			} else {
				secondID = id
			}

			nameVertex := pristine.Vertex{Change: id, Start: 0, End: pristine.ChangePosition(len(nameBytes))}
			graph.PutVertex(txn, nameVertex)
			graph.PutEdge(txn, pristine.Edge{Source: pristine.RootVertex, Target: nameVertex, Flags: pristine.EdgeFolder, IntroducedBy: id})

			childVertex := pristine.Vertex{Change: id, Start: nameVertex.End, End: pristine.ChangePosition(len(content))}
			graph.PutVertex(txn, childVertex)
			graph.PutEdge(txn, pristine.Edge{Source: nameVertex, Target: childVertex, Flags: pristine.EdgeFolder, IntroducedBy: id})
		}
		return nil
	}))
	require.NotEqual(t, firstID, secondID)

	conflicts, err := Output(ctx, s, cs, wc, tel, "main", Options{NWorkers: 1})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictName, conflicts[0].Kind)
}
