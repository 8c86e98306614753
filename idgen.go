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

import "math/bits"

// Ticket is the id generator's state vector: two 64-bit words forming a
// 128-bit multiplicative generator. It is carried as part of the tree
// value so that replicas seeded identically and fed an identical
// operation sequence draw identical internal branch ids.
//
// No third-party deterministic-PRNG package appears anywhere in the
// retrieved example pack; this 128-bit LCG (state advanced with 128-bit
// multiply-add via math/bits, output whitened with a 64-bit xorshift-
// multiply finalizer) is the same kind of register-level bit arithmetic
// used elsewhere in this codebase for fixed-width key extraction, just
// applied to id generation instead.
type Ticket struct {
	Hi, Lo uint64
}

const (
	idgenMulHi = 0x2360ed051fc65da4
	idgenMulLo = 0x4385df649fccf645
	idgenInc   = 0xa0761d6478bd642f
)

// NewTicket seeds a fresh generator state from a configured seed.
func NewTicket(seed int64) Ticket {
	s := uint64(seed)
	return Ticket{
		Hi: s ^ 0x9e3779b97f4a7c15,
		Lo: (s * idgenMulLo) + idgenInc,
	}
}

// NextID advances the ticket and returns the next deterministic 64-bit id
// along with the advanced state. Given the same starting Ticket, NextID
// always returns the same (id, Ticket) pair.
func NextID(t Ticket) (int64, Ticket) {
	// 128-bit state advance: (hi:lo) = (hi:lo)*mul + inc, mod 2^128.
	loHi, loLo := bits.Mul64(t.Lo, idgenMulLo)
	hiLo := t.Hi*idgenMulLo + t.Lo*idgenMulHi + loHi
	newLo, carry := bits.Add64(loLo, idgenInc, 0)
	newHi := hiLo + carry

	next := Ticket{Hi: newHi, Lo: newLo}

	// Whiten the high word so consecutive ids don't trivially track the
	// low-order bits of a linear recurrence.
	x := newHi ^ (newHi >> 33)
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33

	return int64(x), next
}
