package replica

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrtree/rtree"
)

type recordingPeer struct {
	mu      sync.Mutex
	batches [][]Delta
}

func (p *recordingPeer) Submit(_ context.Context, deltas []Delta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, deltas)
	return nil
}

func TestReconcileBroadcastsDiff(t *testing.T) {
	cfg := rtree.DefaultConfig()
	cfg.Type = rtree.BackendHashSummarized
	tr := rtree.New(cfg)

	old := tr.Nodes.(*rtree.HashSummarizedMap)
	next, err := tr.Insert(int64(1), rtree.Box{{Lo: 0, Hi: 1}})
	require.NoError(t, err)
	neu := next.Nodes.(*rtree.HashSummarizedMap)

	b := NewBridge("replica-a")
	peer := &recordingPeer{}
	b.SetPeers([]Peer{peer})

	require.NoError(t, b.Reconcile(context.Background(), old, neu))
	require.Len(t, peer.batches, 1)
	assert.NotEmpty(t, peer.batches[0])
}

func TestIngestAppliesDeltasToNodeMap(t *testing.T) {
	src := NewBridge("replica-a")
	rec := rtree.Record{Kind: rtree.KindLeaf, Parent: "root", Box: rtree.Box{{Lo: 0, Hi: 1}}}
	add := src.CRDT.LocalAdd("leaf-1", rec)

	dst := NewBridge("replica-b")
	nodes := rtree.NewPlainMap()
	dst.Ingest([]Delta{add}, nodes)

	got, ok := nodes.Get("leaf-1")
	require.True(t, ok)
	assert.Equal(t, rec.Parent, got.Parent)

	remove := src.CRDT.LocalRemove("leaf-1")
	dst.Ingest([]Delta{remove}, nodes)
	assert.False(t, nodes.Has("leaf-1"))
}

func TestIngestIgnoresStaleDelta(t *testing.T) {
	dst := NewBridge("replica-b")
	nodes := rtree.NewPlainMap()

	fresh := Delta{
		KeyBytes: rtree.EncodeKey("leaf-1"),
		ID:       ID{Timestamp: 5, NodeID: "replica-a"},
		Payload:  rtree.EncodeRecord(rtree.Record{Kind: rtree.KindLeaf, Parent: "fresh-parent", Box: rtree.Box{{Lo: 0, Hi: 1}}}),
	}
	dst.Ingest([]Delta{fresh}, nodes)
	got, ok := nodes.Get("leaf-1")
	require.True(t, ok)
	assert.Equal(t, rtree.Key("fresh-parent"), got.Parent)

	stale := Delta{
		KeyBytes: rtree.EncodeKey("leaf-1"),
		ID:       ID{Timestamp: 1, NodeID: "replica-a"},
		Payload:  rtree.EncodeRecord(rtree.Record{Kind: rtree.KindLeaf, Parent: "stale-parent", Box: rtree.Box{{Lo: 9, Hi: 9}}}),
	}
	dst.Ingest([]Delta{stale}, nodes)

	got, ok = nodes.Get("leaf-1")
	require.True(t, ok)
	assert.Equal(t, rtree.Key("fresh-parent"), got.Parent, "a delta the CRDT rejected as stale must not overwrite the node map")
}

func TestJoinFoldsSnapshotIntoNodeMap(t *testing.T) {
	b := NewBridge("replica-a")
	b.CRDT.LocalAdd("leaf-1", rtree.Record{Kind: rtree.KindLeaf, Box: rtree.Box{{Lo: 0, Hi: 1}}})
	b.CRDT.LocalAdd("leaf-2", rtree.Record{Kind: rtree.KindLeaf, Box: rtree.Box{{Lo: 1, Hi: 2}}})
	b.CRDT.LocalRemove("leaf-2")

	nodes := rtree.NewPlainMap()
	b.Join(nodes)

	assert.True(t, nodes.Has("leaf-1"))
	assert.False(t, nodes.Has("leaf-2"))
}
