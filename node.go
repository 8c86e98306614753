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

// Key identifies a node: either a user-supplied external leaf id (an
// int64 or a string) or an internally generated 64-bit branch id drawn
// from the IdGen ticket.
type Key = any

// NodeKind tags a Record as a leaf or a branch.
type NodeKind uint8

const (
	KindLeaf NodeKind = iota
	KindBranch
)

// Record is the flat, map-friendly representation of one tree node.
// Parent is nil exactly for the root branch.
// Children is nil for leaves and holds an ordered child-key sequence for
// branches.
type Record struct {
	Kind     NodeKind
	Parent   Key
	Box      Box
	Children []Key
}

func leafRecord(parent Key, box Box) Record {
	return Record{Kind: KindLeaf, Parent: parent, Box: box}
}

func branchRecord(parent Key, box Box, children []Key) Record {
	return Record{Kind: KindBranch, Parent: parent, Box: box, Children: children}
}

func keyEqual(a, b Key) bool {
	return a == b
}

func indexOfChild(children []Key, k Key) int {
	for i, c := range children {
		if keyEqual(c, k) {
			return i
		}
	}
	return -1
}

func removeChild(children []Key, k Key) []Key {
	out := make([]Key, 0, len(children))
	for _, c := range children {
		if !keyEqual(c, k) {
			out = append(out, c)
		}
	}
	return out
}
