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

// Package dispatch provides the single-writer actor that serializes all
// reads and mutations against one tree replica.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dynrtree/rtree"
	"github.com/dynrtree/rtree/replica"
)

type state struct {
	tree   rtree.Tree
	meta   rtree.Metadata
	bridge *replica.Bridge
	peers  []string
}

// mutate runs fn against the state's tree, and -- in distributed mode,
// with a hash-summarized backend -- reconciles the resulting node-map
// diff through the Replication Bridge before returning.
func (s *state) mutate(ctx context.Context, fn func(rtree.Tree) (rtree.Tree, error)) error {
	old := s.tree
	nt, err := fn(old)
	if err != nil {
		return err
	}
	s.tree = nt
	s.meta.Ticket = nt.Ticket

	if s.bridge == nil || s.meta.Config.Mode != rtree.ModeDistributed {
		return nil
	}
	oldMap, ok1 := old.Nodes.(*rtree.HashSummarizedMap)
	newMap, ok2 := nt.Nodes.(*rtree.HashSummarizedMap)
	if ok1 && ok2 {
		return s.bridge.Reconcile(ctx, oldMap, newMap)
	}
	return nil
}

type request struct {
	do    func(context.Context, *state) (any, error)
	reply chan response
}

type response struct {
	value any
	err   error
}

// Dispatcher owns (tree, metadata, crdt handle, peer list) behind a
// single goroutine, so the Tree Engine never sees two operations
// in flight against the same value at once.
type Dispatcher struct {
	reqs chan request
	log  zerolog.Logger
}

// New starts a Dispatcher seeded with tr and meta, optionally bridging
// mutations to bridge (pass nil in Standalone mode).
func New(tr rtree.Tree, meta rtree.Metadata, bridge *replica.Bridge, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{reqs: make(chan request, 16), log: log}
	go d.run(state{tree: tr, meta: meta, bridge: bridge})
	return d
}

func (d *Dispatcher) run(s state) {
	for req := range d.reqs {
		start := time.Now()
		val, err := req.do(context.Background(), &s)
		if d.log.GetLevel() <= zerolog.DebugLevel {
			d.log.Debug().
				Dur("latency", time.Since(start)).
				AnErr("err", err).
				Msg("dispatched request")
		}
		req.reply <- response{value: val, err: err}
	}
}

func (d *Dispatcher) call(ctx context.Context, do func(context.Context, *state) (any, error)) (any, error) {
	req := request{do: do, reply: make(chan response, 1)}
	select {
	case d.reqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.value, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Insert inserts a single leaf.
func (d *Dispatcher) Insert(ctx context.Context, id rtree.Key, box rtree.Box) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.Insert(id, box) })
	})
	return err
}

// BulkInsert inserts a batch of leaves as one atomic unit.
func (d *Dispatcher) BulkInsert(ctx context.Context, leaves []rtree.Leaf) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.BulkInsert(leaves) })
	})
	return err
}

// Upsert inserts id if absent, otherwise updates it in place.
func (d *Dispatcher) Upsert(ctx context.Context, id rtree.Key, box rtree.Box) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.Upsert(id, box) })
	})
	return err
}

// Delete removes a single leaf. Deleting an absent id is a success no-op.
func (d *Dispatcher) Delete(ctx context.Context, id rtree.Key) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.Delete(id) })
	})
	return err
}

// BulkDelete removes a batch of leaves as one atomic unit.
func (d *Dispatcher) BulkDelete(ctx context.Context, ids []rtree.Key) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.BulkDelete(ids) })
	})
	return err
}

// Update moves a leaf to a new box, in place or by reinsertion.
func (d *Dispatcher) Update(ctx context.Context, id rtree.Key, box rtree.Box) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.Update(id, box) })
	})
	return err
}

// BulkUpdate updates a batch of leaves as one atomic unit.
func (d *Dispatcher) BulkUpdate(ctx context.Context, updates []rtree.Leaf) error {
	_, err := d.call(ctx, func(ctx context.Context, s *state) (any, error) {
		return nil, s.mutate(ctx, func(t rtree.Tree) (rtree.Tree, error) { return t.BulkUpdate(updates) })
	})
	return err
}

// Query returns every leaf id overlapping box.
func (d *Dispatcher) Query(ctx context.Context, box rtree.Box) ([]rtree.Key, error) {
	v, err := d.call(ctx, func(_ context.Context, s *state) (any, error) { return s.tree.Query(box) })
	if err != nil {
		return nil, err
	}
	return v.([]rtree.Key), nil
}

// PQuery returns node keys at exactly depth overlapping box.
func (d *Dispatcher) PQuery(ctx context.Context, box rtree.Box, depth int) ([]rtree.Key, error) {
	v, err := d.call(ctx, func(_ context.Context, s *state) (any, error) { return s.tree.PQuery(box, depth) })
	if err != nil {
		return nil, err
	}
	return v.([]rtree.Key), nil
}

// Tree returns the current tree snapshot.
func (d *Dispatcher) Tree(ctx context.Context) (rtree.Tree, error) {
	v, err := d.call(ctx, func(_ context.Context, s *state) (any, error) { return s.tree, nil })
	if err != nil {
		return rtree.Tree{}, err
	}
	return v.(rtree.Tree), nil
}

// Metadata returns the current metadata snapshot.
func (d *Dispatcher) Metadata(ctx context.Context) (rtree.Metadata, error) {
	v, err := d.call(ctx, func(_ context.Context, s *state) (any, error) { return s.meta, nil })
	if err != nil {
		return rtree.Metadata{}, err
	}
	return v.(rtree.Metadata), nil
}

// SetMembers records the peer list in the dispatcher's state and logs
// the change. It does not change the Replication Bridge's own peer set:
// the peers a Reconcile fans deltas out to are the ones last handed to
// Bridge.SetPeers.
func (d *Dispatcher) SetMembers(ctx context.Context, peers []string) error {
	_, err := d.call(ctx, func(_ context.Context, s *state) (any, error) {
		s.peers = peers
		d.log.Info().Strs("peers", peers).Msg("membership changed, peer list recorded")
		return nil, nil
	})
	return err
}
