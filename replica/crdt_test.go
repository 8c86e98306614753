package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrtree/rtree"
)

func TestLocalAddThenSnapshot(t *testing.T) {
	m := NewDeltaMap("replica-a")
	rec := rtree.Record{Kind: rtree.KindLeaf, Parent: int64(1), Box: rtree.Box{{Lo: 0, Hi: 1}}}
	m.LocalAdd(int64(7), rec)

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(7), snap[0].Key)
	assert.False(t, snap[0].Removed)
	assert.Equal(t, rec.Parent, snap[0].Record.Parent)
}

func TestLocalRemoveTombstones(t *testing.T) {
	m := NewDeltaMap("replica-a")
	m.LocalAdd(int64(1), rtree.Record{Kind: rtree.KindLeaf, Box: rtree.Box{{Lo: 0, Hi: 1}}})
	m.LocalRemove(int64(1))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Removed)
}

func TestMergeHigherTimestampWins(t *testing.T) {
	m := NewDeltaMap("replica-a")
	local := m.LocalAdd(int64(1), rtree.Record{Kind: rtree.KindLeaf, Box: rtree.Box{{Lo: 0, Hi: 1}}})

	stale := Delta{KeyBytes: local.KeyBytes, ID: ID{Timestamp: local.ID.Timestamp - 1, NodeID: "replica-b"}, Removed: true}
	m.Merge([]Delta{stale})

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.False(t, snap[0].Removed, "a stale remote delta must not override a newer local entry")

	fresh := Delta{KeyBytes: local.KeyBytes, ID: ID{Timestamp: local.ID.Timestamp + 1, NodeID: "replica-b"}, Removed: true}
	m.Merge([]Delta{fresh})

	snap = m.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Removed, "a newer remote delta must override the local entry")
}

func TestIDGreaterTiesBreakOnNodeID(t *testing.T) {
	a := ID{Timestamp: 5, NodeID: "b"}
	b := ID{Timestamp: 5, NodeID: "a"}
	assert.True(t, a.Greater(b))
	assert.False(t, b.Greater(a))
}
