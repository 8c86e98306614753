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

import "errors"

// Sentinel errors returned by the engine. Every mutating operation leaves
// the tree unchanged when one of these is returned.
var (
	// ErrBadTree is returned by any operation attempted on an
	// uninitialized engine.
	ErrBadTree = errors.New("rtree: operation on an uninitialized tree")

	// ErrKeyExists is returned by Insert when the leaf id already exists.
	ErrKeyExists = errors.New("rtree: leaf id already exists")

	// ErrInvalidConfig is recorded (not surfaced) when an option is
	// dropped in favor of its default; see NewConfig.
	ErrInvalidConfig = errors.New("rtree: invalid configuration option")

	// ErrDimensionMismatch is returned when a box's dimensionality
	// differs from the one established by the tree's first insert.
	ErrDimensionMismatch = errors.New("rtree: box dimensionality mismatch")
)
