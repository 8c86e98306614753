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

import "fmt"

// Stats summarizes a tree's shape: how many leaf and branch records it
// holds, the shallowest and deepest a leaf sits below the root, how
// tightly sibling boxes pack (MeanSiblingOverlap, BorderTouchingChildren),
// and the root box's gross center (RootCentroid, RootMiddleValue).
type Stats struct {
	LeafCount              int
	BranchCount            int
	MinLeafDepth           int
	MaxLeafDepth           int
	MeanSiblingOverlap     float64
	BorderTouchingChildren int
	RootCentroid           []float64
	RootMiddleValue        float64
}

// Stats walks the whole tree once and reports its shape. An empty tree
// (a root with no children) reports LeafCount 0 and both depths 0.
func (t Tree) Stats() (Stats, error) {
	if t.Nodes == nil {
		return Stats{}, ErrBadTree
	}
	s := Stats{MinLeafDepth: -1}
	var overlapSum float64
	var overlapPairs int
	t.statsRec(t.Root, 0, &s, &overlapSum, &overlapPairs)
	if s.MinLeafDepth < 0 {
		s.MinLeafDepth = 0
	}
	if overlapPairs > 0 {
		s.MeanSiblingOverlap = overlapSum / float64(overlapPairs)
	}
	if rootRec, ok := t.Nodes.Get(t.Root); ok && !zeroBox(rootRec.Box) {
		s.RootCentroid = Centroid(rootRec.Box)
		s.RootMiddleValue = MiddleValue(rootRec.Box)
	}
	return s, nil
}

func (t Tree) statsRec(key Key, depth int, s *Stats, overlapSum *float64, overlapPairs *int) {
	rec, ok := t.Nodes.Get(key)
	if !ok {
		return
	}
	if rec.Kind == KindLeaf {
		s.LeafCount++
		if s.MinLeafDepth < 0 || depth < s.MinLeafDepth {
			s.MinLeafDepth = depth
		}
		if depth > s.MaxLeafDepth {
			s.MaxLeafDepth = depth
		}
		return
	}
	s.BranchCount++
	childBoxes := t.childBoxes(rec.Children)
	for i, cb := range childBoxes {
		if InBorder(rec.Box, cb) {
			s.BorderTouchingChildren++
		}
		for j := i + 1; j < len(childBoxes); j++ {
			*overlapSum += float64(OverlapArea(cb, childBoxes[j]))
			*overlapPairs++
		}
	}
	for _, c := range rec.Children {
		t.statsRec(c, depth+1, s, overlapSum, overlapPairs)
	}
}

// Validate walks the node map checking the structural invariants a
// tree built entirely through Insert/Delete/Update/Split is supposed to
// maintain: every branch's box is exactly the combine of its children's
// boxes, every child's Parent points back at the branch listing it,
// every branch holds at most Width children, and every record reachable
// from Root is visited exactly once (no cycles, no orphaned duplicate
// references).
func (t Tree) Validate() error {
	if t.Nodes == nil {
		return ErrBadTree
	}
	rootRec, ok := t.Nodes.Get(t.Root)
	if !ok {
		return fmt.Errorf("rtree: validate: root key %v not present in node map", t.Root)
	}
	if rootRec.Parent != nil {
		return fmt.Errorf("rtree: validate: root has non-nil parent %v", rootRec.Parent)
	}
	visited := make(map[Key]bool)
	return t.validateRec(t.Root, nil, visited)
}

func (t Tree) validateRec(key Key, parent Key, visited map[Key]bool) error {
	if visited[key] {
		return fmt.Errorf("rtree: validate: key %v reachable more than once", key)
	}
	visited[key] = true

	rec, ok := t.Nodes.Get(key)
	if !ok {
		return fmt.Errorf("rtree: validate: dangling child reference %v", key)
	}
	if !keyEqual(rec.Parent, parent) {
		return fmt.Errorf("rtree: validate: key %v has parent %v, expected %v", key, rec.Parent, parent)
	}
	if rec.Kind == KindLeaf {
		if len(rec.Box) != t.Dims && t.Dims != 0 {
			return fmt.Errorf("rtree: validate: leaf %v has %d dimensions, tree has %d", key, len(rec.Box), t.Dims)
		}
		return nil
	}

	if len(rec.Children) > t.Width {
		return fmt.Errorf("rtree: validate: branch %v has %d children, more than Width %d", key, len(rec.Children), t.Width)
	}

	want := CombineMultiple(t.childBoxes(rec.Children), t.Dims)
	if !boxEqual(want, rec.Box) {
		return fmt.Errorf("rtree: validate: branch %v box %v does not match its children's combined box %v", key, rec.Box, want)
	}

	for _, c := range rec.Children {
		if err := t.validateRec(c, key, visited); err != nil {
			return err
		}
	}
	return nil
}

func boxEqual(a, b Box) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
