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

// rtreefuzz differentially fuzzes the Tree Engine: every attempt builds
// the same random sequence of leaves twice -- once via BulkInsert, once
// via a sequential Insert loop -- from identical seeds, and checks that
// the two trees converge on the same structure and that both pass
// Validate once built. It also exercises random updates and deletes
// against one of the two trees and re-validates after each phase.
package main

import (
	"fmt"
	"math/rand"

	"github.com/dynrtree/rtree"
)

func randomBox(r *rand.Rand, dims int) rtree.Box {
	b := make(rtree.Box, dims)
	for i := range b {
		lo := r.Float64()*200 - 100
		hi := lo + r.Float64()*20
		b[i] = rtree.Interval{Lo: lo, Hi: hi}
	}
	return b
}

func sameStructure(a, b rtree.Tree) bool {
	if a.Root != b.Root || a.Ticket != b.Ticket {
		return false
	}
	keysA, keysB := a.Nodes.Keys(), b.Nodes.Keys()
	if len(keysA) != len(keysB) {
		return false
	}
	for _, k := range keysA {
		ra, ok := a.Nodes.Get(k)
		if !ok {
			return false
		}
		rb, ok := b.Nodes.Get(k)
		if !ok {
			return false
		}
		if ra.Kind != rb.Kind || ra.Parent != rb.Parent || len(ra.Children) != len(rb.Children) {
			return false
		}
		for i := range ra.Children {
			if ra.Children[i] != rb.Children[i] {
				return false
			}
		}
	}
	return true
}

func main() {
	const leafCount = 500
	const dims = 2

	for attempt := 0; ; attempt++ {
		fmt.Println("attempt #", attempt)

		src := rand.New(rand.NewSource(int64(attempt)))
		cfg := rtree.DefaultConfig()
		cfg.Seed = int64(attempt)

		leaves := make([]rtree.Leaf, leafCount)
		for i := range leaves {
			leaves[i] = rtree.Leaf{ID: int64(i), Box: randomBox(src, dims)}
		}

		bulk := rtree.New(cfg)
		bulk, err := bulk.BulkInsert(leaves)
		if err != nil {
			panic(fmt.Errorf("bulk insert: %w", err))
		}
		if err := bulk.Validate(); err != nil {
			panic(fmt.Errorf("bulk tree invariant violated: %w", err))
		}

		sequential := rtree.New(cfg)
		for _, l := range leaves {
			sequential, err = sequential.Insert(l.ID, l.Box)
			if err != nil {
				panic(fmt.Errorf("sequential insert: %w", err))
			}
		}
		if err := sequential.Validate(); err != nil {
			panic(fmt.Errorf("sequential tree invariant violated: %w", err))
		}

		if !sameStructure(bulk, sequential) {
			panic("bulk and sequential insert diverged for identical seed and op sequence")
		}

		for i := 0; i < leafCount/4; i++ {
			id := int64(src.Intn(leafCount))
			sequential, err = sequential.Update(id, randomBox(src, dims))
			if err != nil {
				panic(fmt.Errorf("update: %w", err))
			}
		}
		if err := sequential.Validate(); err != nil {
			panic(fmt.Errorf("post-update invariant violated: %w", err))
		}

		for i := 0; i < leafCount; i++ {
			sequential, err = sequential.Delete(int64(i))
			if err != nil {
				panic(fmt.Errorf("delete: %w", err))
			}
		}
		if err := sequential.Validate(); err != nil {
			panic(fmt.Errorf("post-delete invariant violated: %w", err))
		}
		rootRec, _ := sequential.Nodes.Get(sequential.Root)
		if len(rootRec.Children) != 0 {
			panic("root retained children after deleting every leaf")
		}
	}
}
