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

// Interval is one axis' [Lo, Hi] coordinate range. Lo must be <= Hi.
type Interval struct {
	Lo, Hi float64
}

// Box is an axis-aligned bounding box: one Interval per dimension.
// Dimensionality is len(Box) and is established by a tree's first insert.
type Box []Interval

// zeroBox reports whether b is the all-zero sentinel that denotes "empty"
// (only legal on the root of a tree with no leaves).
func zeroBox(b Box) bool {
	for _, iv := range b {
		if iv.Lo != 0 || iv.Hi != 0 {
			return false
		}
	}
	return true
}

// EmptyBox returns the all-zero sentinel box for the given dimensionality.
func EmptyBox(dims int) Box {
	return make(Box, dims)
}

// SameDimension reports whether a and b have equal dimensionality.
func SameDimension(a, b Box) bool {
	return len(a) == len(b)
}

// Combine returns the smallest box containing both a and b.
func Combine(a, b Box) Box {
	out := make(Box, len(a))
	for i := range a {
		lo, hi := a[i].Lo, a[i].Hi
		if b[i].Lo < lo {
			lo = b[i].Lo
		}
		if b[i].Hi > hi {
			hi = b[i].Hi
		}
		out[i] = Interval{Lo: lo, Hi: hi}
	}
	return out
}

// CombineMultiple folds Combine over boxes, skipping the all-zero sentinel.
// It returns the all-zero box of the given dimensionality when every input
// is itself the sentinel (or the slice is empty).
func CombineMultiple(boxes []Box, dims int) Box {
	var acc Box
	for _, b := range boxes {
		if zeroBox(b) {
			continue
		}
		if acc == nil {
			acc = append(Box(nil), b...)
			continue
		}
		acc = Combine(acc, b)
	}
	if acc == nil {
		return EmptyBox(dims)
	}
	return acc
}

// Overlaps reports whether a and b intersect on every axis. The test is
// inclusive: boxes that only touch at an edge or corner overlap, even
// though they share no volume.
func Overlaps(a, b Box) bool {
	for i := range a {
		if a[i].Lo > b[i].Hi || b[i].Lo > a[i].Hi {
			return false
		}
	}
	return true
}

// Contains reports whether outer fully contains inner on every axis.
func Contains(outer, inner Box) bool {
	for i := range outer {
		if outer[i].Lo > inner[i].Lo || inner[i].Hi > outer[i].Hi {
			return false
		}
	}
	return true
}

// InBorder reports whether a contains b and they share at least one axis
// endpoint (b touches a's border rather than sitting strictly inside it).
func InBorder(a, b Box) bool {
	if !Contains(a, b) {
		return false
	}
	for i := range a {
		if a[i].Lo == b[i].Lo || a[i].Hi == b[i].Hi {
			return true
		}
	}
	return false
}

// Area returns the product of (hi-lo) over every axis. The all-zero
// sentinel box returns -1, distinguishing "unset" from genuine zero volume.
func Area(b Box) float64 {
	if zeroBox(b) {
		return -1
	}
	area := 1.0
	for _, iv := range b {
		area *= iv.Hi - iv.Lo
	}
	return area
}

// EnlargementArea is how much current must grow in area to contain
// incoming. The -1 "unset" sentinel is treated as 0 on the subtracted
// side, so enlarging an empty box costs exactly the incoming box's area.
func EnlargementArea(current, incoming Box) float64 {
	combinedArea := Area(Combine(current, incoming))
	currentArea := Area(current)
	if currentArea < 0 {
		currentArea = 0
	}
	return combinedArea - currentArea
}

// intersection returns the overlap box of a and b, and whether one exists.
func intersection(a, b Box) (Box, bool) {
	out := make(Box, len(a))
	for i := range a {
		lo, hi := a[i].Lo, a[i].Hi
		if b[i].Lo > lo {
			lo = b[i].Lo
		}
		if b[i].Hi < hi {
			hi = b[i].Hi
		}
		if lo > hi {
			return nil, false
		}
		out[i] = Interval{Lo: lo, Hi: hi}
	}
	return out, true
}

// OverlapArea scores how much of the smaller of a and b is covered by
// their intersection, as a percentage in [0,100]. It is not a raw
// intersection volume: 0 means "touching or disjoint" and 100 means
// "one box fully contains the other's footprint".
func OverlapArea(a, b Box) int {
	ix, ok := intersection(a, b)
	if !ok {
		return 0
	}
	interVol := volume(ix)
	if interVol <= 0 {
		return 0
	}
	smaller := volume(a)
	if bv := volume(b); bv < smaller {
		smaller = bv
	}
	if smaller <= 0 {
		return 0
	}
	pct := int(100 * interVol / smaller)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// volume is the raw, un-sentineled product of (hi-lo) over every axis.
func volume(b Box) float64 {
	v := 1.0
	for _, iv := range b {
		v *= iv.Hi - iv.Lo
	}
	return v
}

// MiddleValue is the sum of each axis' midpoint.
func MiddleValue(b Box) float64 {
	sum := 0.0
	for _, iv := range b {
		sum += (iv.Lo + iv.Hi) / 2
	}
	return sum
}

// Centroid returns the per-axis midpoint.
func Centroid(b Box) []float64 {
	out := make([]float64, len(b))
	for i, iv := range b {
		out[i] = (iv.Lo + iv.Hi) / 2
	}
	return out
}
