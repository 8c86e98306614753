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

import "math"

// Leaf bundles an external id with its bounding box, the unit both
// Insert and bulk operations accept.
type Leaf struct {
	ID  Key
	Box Box
}

// Tree is the engine's value type: a root key, the id generator's
// current Ticket, and the flat node map backing both. Every mutating
// method returns a new Tree rather than mutating the receiver in place,
// the same copy-on-write discipline applied at the node level in the
// original internal-node tree, lifted here to the whole-tree level
// since the node map itself is now the unit of sharing.
type Tree struct {
	Root   Key
	Ticket Ticket
	Nodes  NodeMap
	Width  int
	Dims   int // 0 until the first Insert establishes dimensionality
}

// New returns an empty tree configured per cfg.
func New(cfg Config) Tree {
	nodes := cfg.NewNodeMap()
	ticket := NewTicket(cfg.Seed)
	rootID, ticket := NextID(ticket)
	nodes.Put(rootID, branchRecord(nil, EmptyBox(0), nil))
	return Tree{Root: rootID, Ticket: ticket, Nodes: nodes, Width: cfg.Width}
}

func (t Tree) clone() Tree {
	return Tree{Root: t.Root, Ticket: t.Ticket, Nodes: t.Nodes.Clone(), Width: t.Width, Dims: t.Dims}
}

// growBox combines old with add, treating old's all-zero sentinel as
// "nothing here yet" rather than as a genuine zero-volume box at the
// origin (see zeroBox in geometry.go).
func growBox(old, add Box) Box {
	if zeroBox(old) {
		return append(Box(nil), add...)
	}
	return Combine(old, add)
}

func (t Tree) childBoxes(children []Key) []Box {
	out := make([]Box, len(children))
	for i, c := range children {
		r, _ := t.Nodes.Get(c)
		out[i] = r.Box
	}
	return out
}

// chooseLeafParent descends from the root picking, at each branch whose
// children are themselves branches, the child needing the least
// enlargement to absorb box -- ties broken by smaller current area,
// then by the earliest child in insertion order.
func (t Tree) chooseLeafParent(box Box) Key {
	cur := t.Root
	for {
		rec, _ := t.Nodes.Get(cur)
		if len(rec.Children) == 0 {
			return cur
		}
		firstChild, _ := t.Nodes.Get(rec.Children[0])
		if firstChild.Kind == KindLeaf {
			return cur
		}
		cur = t.chooseBestChild(rec.Children, box)
	}
}

func (t Tree) chooseBestChild(children []Key, box Box) Key {
	var best Key
	bestEnl, bestArea := math.Inf(1), math.Inf(1)
	for _, c := range children {
		rec, _ := t.Nodes.Get(c)
		enl := EnlargementArea(rec.Box, box)
		area := Area(rec.Box)
		if area < 0 {
			area = 0
		}
		if best == nil || enl < bestEnl || (enl == bestEnl && area < bestArea) {
			best, bestEnl, bestArea = c, enl, area
		}
	}
	return best
}

// Insert adds a brand-new leaf. ErrKeyExists if id is already present;
// ErrDimensionMismatch if box's dimensionality disagrees with the
// tree's established dimensionality.
func (t Tree) Insert(id Key, box Box) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	if t.Nodes.Has(id) {
		return t, ErrKeyExists
	}
	if t.Dims != 0 && len(box) != t.Dims {
		return t, ErrDimensionMismatch
	}
	nt := t.clone()
	if nt.Dims == 0 {
		nt.Dims = len(box)
	}
	nt.insertLeaf(id, box)
	return nt, nil
}

// insertLeaf assumes id is absent and box's dimensionality already
// matches the tree; it mutates the receiver's own node map in place
// (the receiver is expected to already be an owned clone).
func (t *Tree) insertLeaf(id Key, box Box) {
	parent := t.chooseLeafParent(box)
	prec, _ := t.Nodes.Get(parent)
	prec.Children = append(prec.Children, id)
	prec.Box = growBox(prec.Box, box)
	t.Nodes.Put(parent, prec)
	t.Nodes.Put(id, leafRecord(parent, box))

	t.propagateUp(prec.Parent, box)
	t.handleOverflow(parent)
}

// propagateUp enlarges every ancestor's box to also cover box, starting
// from key and following Parent links to the root.
func (t *Tree) propagateUp(key Key, box Box) {
	for key != nil {
		rec, _ := t.Nodes.Get(key)
		rec.Box = growBox(rec.Box, box)
		t.Nodes.Put(key, rec)
		key = rec.Parent
	}
}

// handleOverflow splits key if it now holds more than Width children,
// wiring the new sibling into key's parent (or minting a new root, if
// key was the root) and recursing upward.
func (t *Tree) handleOverflow(key Key) {
	rec, _ := t.Nodes.Get(key)
	if len(rec.Children) <= t.Width {
		return
	}
	sibling := t.split(key)
	if keyEqual(key, t.Root) {
		t.newRoot(key, sibling)
		return
	}
	parent := rec.Parent
	pRec, _ := t.Nodes.Get(parent)
	pRec.Children = append(pRec.Children, sibling)
	t.Nodes.Put(parent, pRec)
	t.handleOverflow(parent)
}

func (t *Tree) newRoot(a, b Key) {
	id, ticket := NextID(t.Ticket)
	t.Ticket = ticket

	aRec, _ := t.Nodes.Get(a)
	bRec, _ := t.Nodes.Get(b)
	root := branchRecord(nil, Combine(aRec.Box, bRec.Box), []Key{a, b})
	t.Nodes.Put(id, root)

	aRec.Parent, bRec.Parent = id, id
	t.Nodes.Put(a, aRec)
	t.Nodes.Put(b, bRec)

	t.Root = id
	t.handleOverflow(id)
}

func nonNeg(a float64) float64 {
	if a < 0 {
		return 0
	}
	return a
}

// split partitions key's Width+1 children into two groups by quadratic
// seed selection: the two entries whose combined box
// wastes the most area seed the groups, and every remaining entry is
// assigned one at a time to whichever group it enlarges least, unless a
// group must be force-filled to bring it up to ceil((Width+1)/2)
// entries; the other group then holds floor((Width+1)/2), one fewer
// when Width+1 is odd. key keeps group A under its own id; a freshly
// minted key holds group B.
func (t *Tree) split(key Key) Key {
	rec, _ := t.Nodes.Get(key)
	entries := append([]Key(nil), rec.Children...)
	boxes := t.childBoxes(entries)
	n := len(entries)

	seedI, seedJ := 0, 1
	bestWaste := math.Inf(-1)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			waste := Area(Combine(boxes[i], boxes[j])) - nonNeg(Area(boxes[i])) - nonNeg(Area(boxes[j]))
			if waste > bestWaste {
				bestWaste, seedI, seedJ = waste, i, j
			}
		}
	}

	assigned := make([]bool, n)
	assigned[seedI], assigned[seedJ] = true, true
	groupA, groupB := []Key{entries[seedI]}, []Key{entries[seedJ]}
	boxA, boxB := boxes[seedI], boxes[seedJ]

	minGroup := (n + 1) / 2 // ceil(n/2), n == Width+1
	remaining := n - 2

	for remaining > 0 {
		if len(groupA)+remaining == minGroup {
			for i, e := range entries {
				if !assigned[i] {
					groupA = append(groupA, e)
					boxA = growBox(boxA, boxes[i])
					assigned[i] = true
				}
			}
			break
		}
		if len(groupB)+remaining == minGroup {
			for i, e := range entries {
				if !assigned[i] {
					groupB = append(groupB, e)
					boxB = growBox(boxB, boxes[i])
					assigned[i] = true
				}
			}
			break
		}

		bestIdx := -1
		bestDiff := math.Inf(-1)
		bestToA := false
		for i := range entries {
			if assigned[i] {
				continue
			}
			enlA := EnlargementArea(boxA, boxes[i])
			enlB := EnlargementArea(boxB, boxes[i])
			diff := enlA - enlB
			if diff < 0 {
				diff = -diff
			}
			if diff > bestDiff {
				bestDiff = diff
				bestIdx = i
				bestToA = enlA < enlB || (enlA == enlB && nonNeg(Area(boxA)) < nonNeg(Area(boxB)))
			}
		}
		if bestToA {
			groupA = append(groupA, entries[bestIdx])
			boxA = growBox(boxA, boxes[bestIdx])
		} else {
			groupB = append(groupB, entries[bestIdx])
			boxB = growBox(boxB, boxes[bestIdx])
		}
		assigned[bestIdx] = true
		remaining--
	}

	sibling, ticket := NextID(t.Ticket)
	t.Ticket = ticket

	rec.Children = groupA
	rec.Box = boxA
	t.Nodes.Put(key, rec)

	t.Nodes.Put(sibling, branchRecord(rec.Parent, boxB, groupB))
	for _, c := range groupB {
		cr, _ := t.Nodes.Get(c)
		cr.Parent = sibling
		t.Nodes.Put(c, cr)
	}

	return sibling
}

// BulkInsert inserts every leaf as one atomic unit: the first failure
// aborts the whole batch and the pre-call tree is returned unchanged,
// rather than leaving a partially applied batch visible to callers.
func (t Tree) BulkInsert(leaves []Leaf) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	nt := t
	for _, l := range leaves {
		var err error
		nt, err = nt.Insert(l.ID, l.Box)
		if err != nil {
			return t, err
		}
	}
	return nt, nil
}

// Upsert inserts id if absent, otherwise updates its box in place.
func (t Tree) Upsert(id Key, box Box) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	if t.Nodes.Has(id) {
		return t.Update(id, box)
	}
	return t.Insert(id, box)
}

// recomputeAncestors walks upward from key, assuming key's own Children
// list is already up to date: it prunes key if key is a now-childless
// non-root branch (continuing the walk from its former parent), or
// recomputes key's Box from its children and continues to key's parent
// otherwise, all the way up to and including the root.
func (t *Tree) recomputeAncestors(key Key) {
	for {
		rec, _ := t.Nodes.Get(key)
		if len(rec.Children) == 0 && !keyEqual(key, t.Root) {
			parent := rec.Parent
			t.Nodes.Delete(key)
			pRec, _ := t.Nodes.Get(parent)
			pRec.Children = removeChild(pRec.Children, key)
			t.Nodes.Put(parent, pRec)
			key = parent
			continue
		}
		rec.Box = CombineMultiple(t.childBoxes(rec.Children), t.Dims)
		t.Nodes.Put(key, rec)
		if keyEqual(key, t.Root) {
			return
		}
		key = rec.Parent
	}
}

func (t *Tree) deleteLeaf(id Key) {
	rec, _ := t.Nodes.Get(id)
	parent := rec.Parent
	t.Nodes.Delete(id)
	pRec, _ := t.Nodes.Get(parent)
	pRec.Children = removeChild(pRec.Children, id)
	t.Nodes.Put(parent, pRec)
	t.recomputeAncestors(parent)
}

// Delete removes the leaf at id. Deleting an id that is absent, or that
// names a branch rather than a leaf, is a no-op success, not an error
// rather than an error. A branch left with zero children is
// pruned from its own parent, all the way up; the root is never pruned
// and instead ends up with the all-zero box once it has no leaves left.
func (t Tree) Delete(id Key) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	rec, ok := t.Nodes.Get(id)
	if !ok || rec.Kind != KindLeaf {
		return t, nil
	}
	nt := t.clone()
	nt.deleteLeaf(id)
	return nt, nil
}

// BulkDelete removes every id as one atomic unit.
func (t Tree) BulkDelete(ids []Key) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	nt := t
	for _, id := range ids {
		var err error
		nt, err = nt.Delete(id)
		if err != nil {
			return t, err
		}
	}
	return nt, nil
}

// Update moves the leaf at id to box. If box still fits inside the
// leaf's current parent box, the leaf is updated in place and ancestor
// boxes are recomputed upward (which may shrink them); otherwise the
// leaf is deleted and reinserted via the normal descent, exactly as if
// a caller had issued Delete then Insert. Updating an
// absent id, or one naming a branch, is a no-op success.
func (t Tree) Update(id Key, box Box) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	rec, ok := t.Nodes.Get(id)
	if !ok || rec.Kind != KindLeaf {
		return t, nil
	}
	if len(box) != t.Dims {
		return t, ErrDimensionMismatch
	}

	nt := t.clone()
	parentRec, _ := nt.Nodes.Get(rec.Parent)
	if Contains(parentRec.Box, box) {
		rec.Box = box
		nt.Nodes.Put(id, rec)
		nt.recomputeAncestors(rec.Parent)
		return nt, nil
	}

	nt.deleteLeaf(id)
	nt.insertLeaf(id, box)
	return nt, nil
}

// BulkUpdate updates every leaf as one atomic unit.
func (t Tree) BulkUpdate(updates []Leaf) (Tree, error) {
	if t.Nodes == nil {
		return t, ErrBadTree
	}
	nt := t
	for _, u := range updates {
		var err error
		nt, err = nt.Update(u.ID, u.Box)
		if err != nil {
			return t, err
		}
	}
	return nt, nil
}

// Query returns every leaf id whose box overlaps box, found by a
// depth-first descent that prunes whole subtrees whose box doesn't
// overlap.
func (t Tree) Query(box Box) ([]Key, error) {
	if t.Nodes == nil {
		return nil, ErrBadTree
	}
	var out []Key
	t.queryRec(t.Root, box, &out)
	return out, nil
}

func (t Tree) queryRec(key Key, box Box, out *[]Key) {
	rec, ok := t.Nodes.Get(key)
	if !ok || !Overlaps(rec.Box, box) {
		return
	}
	if rec.Kind == KindLeaf {
		*out = append(*out, key)
		return
	}
	for _, c := range rec.Children {
		t.queryRec(c, box, out)
	}
}

// PQuery returns the keys of every node at exactly depth levels below
// the root whose box overlaps box (the root itself is depth 0). A
// depth deeper than the tree's actual depth yields the overlapping leaf
// ids instead.
func (t Tree) PQuery(box Box, depth int) ([]Key, error) {
	if t.Nodes == nil {
		return nil, ErrBadTree
	}
	var out []Key
	t.pqueryRec(t.Root, box, depth, 0, &out)
	return out, nil
}

func (t Tree) pqueryRec(key Key, box Box, target, cur int, out *[]Key) {
	rec, ok := t.Nodes.Get(key)
	if !ok || !Overlaps(rec.Box, box) {
		return
	}
	if cur == target || rec.Kind == KindLeaf {
		*out = append(*out, key)
		return
	}
	for _, c := range rec.Children {
		t.pqueryRec(c, box, target, cur+1, out)
	}
}
