package rtree

import "testing"

func TestRecordRoundTripLeaf(t *testing.T) {
	r := leafRecord(int64(7), Box{{Lo: -1, Hi: 1}, {Lo: 0, Hi: 2}})
	got, err := decodeRecord(encodeRecord(r))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if !boxEqual(got.Box, r.Box) {
		t.Fatalf("box mismatch: got %v, want %v", got.Box, r.Box)
	}
	if got.Kind != KindLeaf {
		t.Fatalf("kind mismatch: got %v, want %v", got.Kind, KindLeaf)
	}
	if got.Parent != r.Parent {
		t.Fatalf("parent mismatch: got %v, want %v", got.Parent, r.Parent)
	}
}

func TestRecordRoundTripBranch(t *testing.T) {
	r := branchRecord("root", Box{{Lo: -50, Hi: 36}, {Lo: -10, Hi: 41}}, []Key{int64(1), "leaf-a", int64(3)})
	got, err := decodeRecord(encodeRecord(r))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if got.Kind != KindBranch {
		t.Fatalf("kind mismatch: got %v, want %v", got.Kind, KindBranch)
	}
	if got.Parent != r.Parent {
		t.Fatalf("parent mismatch: got %v, want %v", got.Parent, r.Parent)
	}
	if len(got.Children) != len(r.Children) {
		t.Fatalf("children length mismatch: got %d, want %d", len(got.Children), len(r.Children))
	}
	for i := range r.Children {
		if got.Children[i] != r.Children[i] {
			t.Fatalf("child %d mismatch: got %v, want %v", i, got.Children[i], r.Children[i])
		}
	}
}

func TestRecordRoundTripRootParent(t *testing.T) {
	r := branchRecord(nil, EmptyBox(2), nil)
	got, err := decodeRecord(encodeRecord(r))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if got.Parent != nil {
		t.Fatalf("expected nil parent for root record, got %v", got.Parent)
	}
	if !boxEqual(got.Box, r.Box) {
		t.Fatalf("box mismatch: got %v, want %v", got.Box, r.Box)
	}
}

func TestDecodeInvalidRecordEncoding(t *testing.T) {
	if _, err := decodeKey([]byte{}); err != ErrInvalidRecordEncoding {
		t.Fatalf("expected ErrInvalidRecordEncoding on empty input, got %v", err)
	}
	if _, err := decodeKey([]byte{keyTagString, 0, 5, 'a'}); err != ErrInvalidRecordEncoding {
		t.Fatalf("expected ErrInvalidRecordEncoding on truncated string key, got %v", err)
	}
}

func TestEncodeDecodeKeyRoundTrip(t *testing.T) {
	cases := []Key{nil, int64(42), int64(-1), "some-leaf-id", ""}
	for _, k := range cases {
		buf := encodeKey(nil, k)
		got, rest, err := decodeKey(buf)
		if err != nil {
			t.Fatalf("decodeKey(%v): %v", k, err)
		}
		if len(rest) != 0 {
			t.Fatalf("decodeKey(%v): leftover bytes %v", k, rest)
		}
		if got != k {
			t.Fatalf("decodeKey(%v) = %v", k, got)
		}
	}
}
