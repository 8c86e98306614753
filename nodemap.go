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

package rtree

import (
	"fmt"
	"hash/fnv"

	"github.com/bits-and-blooms/bitset"
	"github.com/prysmaticlabs/gohashtree"
)

// NodeMap is the flat key -> Record mapping the Tree Engine operates
// against. Two backends satisfy it: Plain and
// HashSummarized. The engine never type-switches on the backend; it only
// ever calls through this interface, so swapping backends changes
// metadata, never engine semantics.
type NodeMap interface {
	Get(k Key) (Record, bool)
	Put(k Key, r Record)
	Delete(k Key)
	Has(k Key) bool
	Keys() []Key
	Len() int
	// Clone returns an independent snapshot: mutating the clone never
	// affects the receiver, matching the engine's per-call value
	// semantics.
	Clone() NodeMap
}

// PlainMap is the default backend: a bare key -> Record map.
type PlainMap struct {
	m map[Key]Record
}

// NewPlainMap returns an empty Plain-backend node map.
func NewPlainMap() *PlainMap {
	return &PlainMap{m: make(map[Key]Record)}
}

func (p *PlainMap) Get(k Key) (Record, bool) { r, ok := p.m[k]; return r, ok }
func (p *PlainMap) Put(k Key, r Record)      { p.m[k] = r }
func (p *PlainMap) Delete(k Key)             { delete(p.m, k) }
func (p *PlainMap) Has(k Key) bool           { _, ok := p.m[k]; return ok }
func (p *PlainMap) Len() int                 { return len(p.m) }

func (p *PlainMap) Keys() []Key {
	out := make([]Key, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	return out
}

func (p *PlainMap) Clone() NodeMap {
	cp := make(map[Key]Record, len(p.m))
	for k, v := range p.m {
		cp[k] = v
	}
	return &PlainMap{m: cp}
}

const hashBuckets = 256

// HashSummarizedMap is the replicated-mode backend. It tracks a content
// hash per key (computed over the key's ssz-encoded Record via a small
// Merkleization pipeline built on gohashtree's batched SHA-256, the same
// pairing primitive the wider pack uses for SSZ hash-tree-root), plus a
// 256-bucket dirty bitmap. Hashes are computed on Put; DiffKeys only
// compares the stored hashes of keys in buckets a map's own mutations
// have touched since it was cloned, skipping keys in untouched buckets.
type HashSummarizedMap struct {
	records map[Key]Record
	hashes  map[Key][32]byte
	dirty   *bitset.BitSet
}

// NewHashSummarizedMap returns an empty HashSummarized-backend node map.
func NewHashSummarizedMap() *HashSummarizedMap {
	return &HashSummarizedMap{
		records: make(map[Key]Record),
		hashes:  make(map[Key][32]byte),
		dirty:   bitset.New(hashBuckets),
	}
}

func bucketOf(k Key) uint {
	h := fnv.New64a()
	fmt.Fprintf(h, "%T:%v", k, k)
	return uint(h.Sum64() % hashBuckets)
}

func (h *HashSummarizedMap) Get(k Key) (Record, bool) { r, ok := h.records[k]; return r, ok }
func (h *HashSummarizedMap) Has(k Key) bool           { _, ok := h.records[k]; return ok }
func (h *HashSummarizedMap) Len() int                 { return len(h.records) }

func (h *HashSummarizedMap) Put(k Key, r Record) {
	h.records[k] = r
	h.hashes[k] = recordHash(r)
	h.dirty.Set(bucketOf(k))
}

func (h *HashSummarizedMap) Delete(k Key) {
	delete(h.records, k)
	delete(h.hashes, k)
	h.dirty.Set(bucketOf(k))
}

func (h *HashSummarizedMap) Keys() []Key {
	out := make([]Key, 0, len(h.records))
	for k := range h.records {
		out = append(out, k)
	}
	return out
}

func (h *HashSummarizedMap) Clone() NodeMap {
	records := make(map[Key]Record, len(h.records))
	hashes := make(map[Key][32]byte, len(h.hashes))
	for k, v := range h.records {
		records[k] = v
	}
	for k, v := range h.hashes {
		hashes[k] = v
	}
	return &HashSummarizedMap{
		records: records,
		hashes:  hashes,
		// A fresh clone has made no mutations of its own yet: its dirty
		// bitmap tracks changes relative to the parent it was cloned
		// from, not the parent's own history.
		dirty: bitset.New(hashBuckets),
	}
}

// DiffKeys returns the set of keys whose records differ between old and
// neu. neu is assumed to be a (possibly mutated) clone of old: only
// buckets neu's own dirty bitmap marks are inspected.
func DiffKeys(old, neu *HashSummarizedMap) []Key {
	seen := make(map[Key]struct{})
	var out []Key
	add := func(k Key) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for bucket, e := neu.dirty.NextSet(0); e; bucket, e = neu.dirty.NextSet(bucket + 1) {
		for k, h := range neu.hashes {
			if bucketOf(k) != bucket {
				continue
			}
			if oh, ok := old.hashes[k]; !ok || oh != h {
				add(k)
			}
		}
		for k := range old.records {
			if bucketOf(k) != bucket {
				continue
			}
			if _, ok := neu.records[k]; !ok {
				add(k)
			}
		}
	}
	return out
}

// recordHash content-hashes a Record by ssz-encoding it and Merkleizing
// the result with gohashtree's batched pairwise SHA-256.
func recordHash(r Record) [32]byte {
	return merkleize(encodeRecord(r))
}

func merkleize(b []byte) [32]byte {
	chunks := chunk32(b)
	if len(chunks) == 0 {
		return [32]byte{}
	}
	for len(chunks) > 1 {
		if len(chunks)%2 == 1 {
			chunks = append(chunks, [32]byte{})
		}
		digests := make([][32]byte, len(chunks)/2)
		if err := gohashtree.Hash(digests, chunks); err != nil {
			// Our own chunking always yields an even-length, non-empty
			// input; a failure here means gohashtree rejected a shape
			// invariant we're responsible for maintaining.
			panic(fmt.Errorf("rtree: merkleize: %w", err))
		}
		chunks = digests
	}
	return chunks[0]
}

func chunk32(b []byte) [][32]byte {
	if len(b) == 0 {
		return nil
	}
	n := (len(b) + 31) / 32
	out := make([][32]byte, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], b[i*32:min(len(b), (i+1)*32)])
	}
	return out
}
