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
	"encoding/binary"
	"errors"
	"math"

	"github.com/karalabe/ssz"
)

// ErrInvalidRecordEncoding is returned by decodeRecord when a wire
// payload doesn't round-trip through the wireRecord codec below.
var ErrInvalidRecordEncoding = errors.New("rtree: invalid record encoding")

const (
	keyTagNone   = 0
	keyTagInt    = 1
	keyTagString = 2

	maxParentStr = 128
	maxBoxWords  = 64   // up to 32 dimensions, Lo+Hi per axis
	maxChildBlob = 8192 // packed child-key list
)

// wireRecord is the ssz-encodable projection of a Record. Box coordinates
// are carried as their raw float64 bit patterns (math.Float64bits) rather
// than as ssz-native floats -- ssz has none -- which keeps encoding exact
// and bit-stable across peers, a requirement for replicas that compare
// encoded records byte-for-byte. Record.Children holds an arbitrary-arity
// mix of int64 and string keys; rather than model that as a nested ssz
// list-of-variable-size-objects (ssz lists assume a fixed per-element
// size), the child keys are length-delimited and packed by hand into
// ChildBlob, with ChildCount giving ssz a fixed field to validate against.
type wireRecord struct {
	Kind       uint8
	ParentTag  uint8
	ParentInt  uint64
	ParentStr  []byte `ssz-max:"128"`
	ChildCount uint64
	BoxBits    []uint64 `ssz-max:"64"`
	ChildBlob  []byte   `ssz-max:"8192"`
}

func (w *wireRecord) SizeSSZ(sizer *ssz.Sizer, fixed bool) uint32 {
	size := uint32(1 + 1 + 8 + 4 + 8 + 4 + 4)
	if fixed {
		return size
	}
	size += ssz.SizeDynamicBytes(sizer, w.ParentStr)
	size += ssz.SizeSliceOfUint64s(sizer, w.BoxBits)
	size += ssz.SizeDynamicBytes(sizer, w.ChildBlob)
	return size
}

func (w *wireRecord) DefineSSZ(codec *ssz.Codec) {
	ssz.DefineUint8(codec, &w.Kind)
	ssz.DefineUint8(codec, &w.ParentTag)
	ssz.DefineUint64(codec, &w.ParentInt)
	ssz.DefineDynamicBytesOffset(codec, &w.ParentStr, maxParentStr)
	ssz.DefineUint64(codec, &w.ChildCount)
	ssz.DefineSliceOfUint64sOffset(codec, &w.BoxBits, maxBoxWords)
	ssz.DefineDynamicBytesOffset(codec, &w.ChildBlob, maxChildBlob)

	ssz.DefineDynamicBytesContent(codec, &w.ParentStr, maxParentStr)
	ssz.DefineSliceOfUint64sContent(codec, &w.BoxBits, maxBoxWords)
	ssz.DefineDynamicBytesContent(codec, &w.ChildBlob, maxChildBlob)
}

// encodeKey packs one Key's wire tag and payload into dst.
func encodeKey(dst []byte, k Key) []byte {
	switch v := k.(type) {
	case nil:
		return append(dst, keyTagNone)
	case int64:
		dst = append(dst, keyTagInt)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		return append(dst, buf[:]...)
	case int:
		return encodeKey(dst, int64(v))
	case string:
		dst = append(dst, keyTagString)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(v)))
		dst = append(dst, lenBuf[:]...)
		return append(dst, v...)
	default:
		panic("rtree: unsupported key type in encodeKey")
	}
}

// decodeKey reads one Key back out of src, returning the remainder.
func decodeKey(src []byte) (Key, []byte, error) {
	if len(src) < 1 {
		return nil, nil, ErrInvalidRecordEncoding
	}
	switch src[0] {
	case keyTagNone:
		return nil, src[1:], nil
	case keyTagInt:
		if len(src) < 9 {
			return nil, nil, ErrInvalidRecordEncoding
		}
		return int64(binary.BigEndian.Uint64(src[1:9])), src[9:], nil
	case keyTagString:
		if len(src) < 3 {
			return nil, nil, ErrInvalidRecordEncoding
		}
		n := int(binary.BigEndian.Uint16(src[1:3]))
		if len(src) < 3+n {
			return nil, nil, ErrInvalidRecordEncoding
		}
		return string(src[3 : 3+n]), src[3+n:], nil
	default:
		return nil, nil, ErrInvalidRecordEncoding
	}
}

func toWire(r Record) *wireRecord {
	w := &wireRecord{Kind: uint8(r.Kind)}

	switch v := r.Parent.(type) {
	case nil:
		w.ParentTag = keyTagNone
	case int64:
		w.ParentTag = keyTagInt
		w.ParentInt = uint64(v)
	case int:
		w.ParentTag = keyTagInt
		w.ParentInt = uint64(v)
	case string:
		w.ParentTag = keyTagString
		w.ParentStr = []byte(v)
	}

	w.BoxBits = make([]uint64, 0, 2*len(r.Box))
	for _, iv := range r.Box {
		w.BoxBits = append(w.BoxBits, math.Float64bits(iv.Lo), math.Float64bits(iv.Hi))
	}

	var blob []byte
	for _, c := range r.Children {
		blob = encodeKey(blob, c)
	}
	w.ChildBlob = blob
	w.ChildCount = uint64(len(r.Children))

	return w
}

func fromWire(w *wireRecord) (Record, error) {
	r := Record{Kind: NodeKind(w.Kind)}

	switch w.ParentTag {
	case keyTagNone:
		r.Parent = nil
	case keyTagInt:
		r.Parent = int64(w.ParentInt)
	case keyTagString:
		r.Parent = string(w.ParentStr)
	default:
		return Record{}, ErrInvalidRecordEncoding
	}

	if len(w.BoxBits)%2 != 0 {
		return Record{}, ErrInvalidRecordEncoding
	}
	r.Box = make(Box, len(w.BoxBits)/2)
	for i := range r.Box {
		r.Box[i] = Interval{
			Lo: math.Float64frombits(w.BoxBits[2*i]),
			Hi: math.Float64frombits(w.BoxBits[2*i+1]),
		}
	}

	rest := w.ChildBlob
	children := make([]Key, 0, w.ChildCount)
	for i := uint64(0); i < w.ChildCount; i++ {
		var (
			k   Key
			err error
		)
		k, rest, err = decodeKey(rest)
		if err != nil {
			return Record{}, err
		}
		children = append(children, k)
	}
	r.Children = children

	return r, nil
}

// encodeRecord ssz-encodes a Record into a deterministic, endianness-
// fixed byte slice suitable for content hashing (nodemap.go) and CRDT
// delta payloads (the replica package).
func encodeRecord(r Record) []byte {
	w := toWire(r)
	buf := make([]byte, ssz.Size(w))
	if err := ssz.EncodeToBytes(buf, w); err != nil {
		panic(err)
	}
	return buf
}

// decodeRecord reverses encodeRecord.
func decodeRecord(b []byte) (Record, error) {
	w := new(wireRecord)
	if err := ssz.DecodeFromBytes(b, w); err != nil {
		return Record{}, err
	}
	return fromWire(w)
}

// EncodeRecord and DecodeRecord, and EncodeKey and DecodeKey, are the
// exported doors into this file's wire codec: the replica package
// builds CRDT delta payloads out of them without reaching into rtree's
// unexported internals.
func EncodeRecord(r Record) []byte          { return encodeRecord(r) }
func DecodeRecord(b []byte) (Record, error) { return decodeRecord(b) }
func EncodeKey(k Key) []byte                { return encodeKey(nil, k) }
func DecodeKey(b []byte) (Key, []byte, error) { return decodeKey(b) }
