// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package replica

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dynrtree/rtree"
)

// Peer accepts a batch of outbound deltas. Transport (gRPC, a message
// bus, whatever a deployment's CRDT collaborator actually speaks) is
// outside this module's scope; Peer is the seam a caller wires a real
// transport into.
type Peer interface {
	Submit(ctx context.Context, deltas []Delta) error
}

// Bridge is the Replication Bridge: it watches a tree's
// node map for changes, turns them into CRDT deltas, fans them out to
// peers, and folds inbound deltas back into both the CRDT and the local
// node map.
type Bridge struct {
	CRDT  *DeltaMap
	peers []Peer
}

// NewBridge returns a Bridge whose local CRDT replica is identified by nodeID.
func NewBridge(nodeID string) *Bridge {
	return &Bridge{CRDT: NewDeltaMap(nodeID)}
}

// SetPeers replaces the peer list a subsequent Reconcile fans deltas out to.
func (b *Bridge) SetPeers(peers []Peer) {
	b.peers = peers
}

// Reconcile diffs old against neu -- the hash-summarized node map
// before and after one mutating engine call -- stamps a local delta per
// differing key, and broadcasts the batch to every configured peer
// concurrently via errgroup so one slow or failing peer doesn't stall
// the rest.
func (b *Bridge) Reconcile(ctx context.Context, old, neu *rtree.HashSummarizedMap) error {
	diffKeys := rtree.DiffKeys(old, neu)
	if len(diffKeys) == 0 {
		return nil
	}
	deltas := make([]Delta, 0, len(diffKeys))
	for _, k := range diffKeys {
		if rec, ok := neu.Get(k); ok {
			deltas = append(deltas, b.CRDT.LocalAdd(k, rec))
		} else {
			deltas = append(deltas, b.CRDT.LocalRemove(k))
		}
	}
	return b.broadcast(ctx, deltas)
}

func (b *Bridge) broadcast(ctx context.Context, deltas []Delta) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range b.peers {
		p := p
		g.Go(func() error { return p.Submit(ctx, deltas) })
	}
	return g.Wait()
}

// Ingest folds an inbound batch of remote deltas into the local CRDT
// and applies only the deltas the CRDT actually accepted directly to
// nodes, without re-running any tree algorithm: the flat node map is
// self-describing, so a Remove deletes the key and an Add overwrites it
// outright. A delta the CRDT rejected as stale (beaten by an ID it
// already holds) must not touch nodes either, or nodes would diverge
// from the CRDT's own resolved state.
func (b *Bridge) Ingest(deltas []Delta, nodes rtree.NodeMap) {
	accepted := b.CRDT.Merge(deltas)
	for _, dl := range accepted {
		key, _, err := rtree.DecodeKey(dl.KeyBytes)
		if err != nil {
			continue
		}
		if dl.Removed {
			nodes.Delete(key)
			continue
		}
		rec, err := rtree.DecodeRecord(dl.Payload)
		if err != nil {
			continue
		}
		nodes.Put(key, rec)
	}
}

// Join reconstructs nodes from the CRDT's full current snapshot,
// folding every live entry as an Add.
func (b *Bridge) Join(nodes rtree.NodeMap) {
	for _, e := range b.CRDT.Snapshot() {
		if e.Removed {
			continue
		}
		nodes.Put(e.Key, e.Record)
	}
}
