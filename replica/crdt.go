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

// Package replica implements the eventually-consistent map CRDT the Tree
// Engine's node map is mirrored through in distributed mode, and the
// Bridge that keeps a local tree and that CRDT in sync.
package replica

import (
	"sync"

	"github.com/dynrtree/rtree"
)

// ID is a Lamport timestamp paired with the replica that issued it,
// giving a total order over concurrent mutations of the same key.
type ID struct {
	Timestamp int64
	NodeID    string
}

// Greater reports whether a supersedes b under the map's conflict
// resolution rule: higher timestamp wins, NodeID breaks ties. The same
// rule an RGA sequence CRDT uses to order concurrent sibling inserts
// applies here to order concurrent writes of the same map key.
func (a ID) Greater(b ID) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.NodeID > b.NodeID
}

type entryOp uint8

const (
	opAdd entryOp = iota
	opRemove
)

type entry struct {
	id      ID
	op      entryOp
	payload []byte
}

// Delta is one CRDT mutation as shipped to and from peers: Add carries
// Payload (an ssz-encoded rtree.Record), Remove carries none.
type Delta struct {
	KeyBytes []byte
	ID       ID
	Removed  bool
	Payload  []byte
}

// DeltaMap is a small observed-remove map CRDT keyed by rtree.Key,
// storing ssz-encoded rtree.Record payloads. It is the stand-in this
// module uses for the "external collaborator" the design assumes --
// no delta-CRDT map library appears anywhere in the retrieved example
// pack, so this one is grounded on the conflict-ordering primitive (a
// Lamport-timestamp-plus-NodeID total order) a sequence CRDT in the
// pack already uses for the same purpose.
type DeltaMap struct {
	mu      sync.Mutex
	nodeID  string
	clock   int64
	entries map[string]entry
	keys    map[string]rtree.Key
}

// NewDeltaMap returns an empty map CRDT for the replica identified by nodeID.
func NewDeltaMap(nodeID string) *DeltaMap {
	return &DeltaMap{
		nodeID:  nodeID,
		entries: make(map[string]entry),
		keys:    make(map[string]rtree.Key),
	}
}

// LocalAdd stamps a local Add(key, rec) mutation with a fresh ID and
// records it, returning the Delta ready for submission to peers.
func (d *DeltaMap) LocalAdd(key rtree.Key, rec rtree.Record) Delta {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock++
	id := ID{Timestamp: d.clock, NodeID: d.nodeID}
	kb := rtree.EncodeKey(key)
	payload := rtree.EncodeRecord(rec)
	d.entries[string(kb)] = entry{id: id, op: opAdd, payload: payload}
	d.keys[string(kb)] = key
	return Delta{KeyBytes: kb, ID: id, Payload: payload}
}

// LocalRemove stamps a local Remove(key) mutation.
func (d *DeltaMap) LocalRemove(key rtree.Key) Delta {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock++
	id := ID{Timestamp: d.clock, NodeID: d.nodeID}
	kb := rtree.EncodeKey(key)
	d.entries[string(kb)] = entry{id: id, op: opRemove}
	d.keys[string(kb)] = key
	return Delta{KeyBytes: kb, ID: id, Removed: true}
}

// Merge folds a batch of remote deltas in, keeping whichever side's ID
// is Greater per key. This is the map's entire conflict-resolution
// policy for concurrent same-key writes: last-writer-wins by Lamport
// timestamp, tie-broken by node id. It returns the subset of deltas that
// actually won and were applied, in the same order they were given --
// callers that mirror the CRDT's state elsewhere (a node map, say) must
// apply only this subset, or they will diverge from the CRDT by
// replaying a delta the CRDT itself rejected as stale.
func (d *DeltaMap) Merge(deltas []Delta) []Delta {
	d.mu.Lock()
	defer d.mu.Unlock()
	accepted := make([]Delta, 0, len(deltas))
	for _, dl := range deltas {
		k := string(dl.KeyBytes)
		if existing, ok := d.entries[k]; ok && !dl.ID.Greater(existing.id) {
			continue
		}
		op := opAdd
		if dl.Removed {
			op = opRemove
		}
		d.entries[k] = entry{id: dl.ID, op: op, payload: dl.Payload}
		if _, known := d.keys[k]; !known {
			if key, _, err := rtree.DecodeKey(dl.KeyBytes); err == nil {
				d.keys[k] = key
			}
		}
		if dl.ID.Timestamp > d.clock {
			d.clock = dl.ID.Timestamp
		}
		accepted = append(accepted, dl)
	}
	return accepted
}

// Entry is one live or tombstoned map slot, as returned by Snapshot.
type Entry struct {
	Key     rtree.Key
	Record  rtree.Record
	Removed bool
}

// Snapshot materializes the CRDT's current state as a flat, unordered
// list of entries, for folding into a node map on initial join.
func (d *DeltaMap) Snapshot() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, 0, len(d.entries))
	for k, e := range d.entries {
		ent := Entry{Key: d.keys[k], Removed: e.op == opRemove}
		if e.op == opAdd {
			rec, err := rtree.DecodeRecord(e.payload)
			if err != nil {
				continue
			}
			ent.Record = rec
		}
		out = append(out, ent)
	}
	return out
}
