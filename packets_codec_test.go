package mysql

import (
	"bytes"
	"testing"
)

func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 250, 251, 65535, 65536, 16777215, 16777216, 1 << 40} {
		buf := appendLengthEncodedInteger(nil, n)
		got, isNull, consumed := readLengthEncodedInteger(buf)
		if isNull {
			t.Fatalf("n=%d: unexpected NULL marker", n)
		}
		if got != n {
			t.Errorf("n=%d: round trip = %d", n, got)
		}
		if consumed != len(buf) {
			t.Errorf("n=%d: consumed %d, want %d", n, consumed, len(buf))
		}
	}
}

func TestReadLengthEncodedIntegerNull(t *testing.T) {
	_, isNull, n := readLengthEncodedInteger([]byte{0xfb})
	if !isNull || n != 1 {
		t.Errorf("NULL marker: isNull=%v n=%d", isNull, n)
	}
}

func TestLengthEncodedStringRoundTrip(t *testing.T) {
	want := []byte("hello world")
	buf := appendLengthEncodedString(nil, want)

	got, isNull, n, err := readLengthEncodedString(buf)
	if err != nil {
		t.Fatalf("readLengthEncodedString: %v", err)
	}
	if isNull {
		t.Fatal("unexpected NULL")
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if n != len(buf) {
		t.Errorf("consumed %d, want %d", n, len(buf))
	}
}

func TestLengthEncodedStringEmpty(t *testing.T) {
	buf := appendLengthEncodedString(nil, nil)
	got, _, n, err := readLengthEncodedString(buf)
	if err != nil {
		t.Fatalf("readLengthEncodedString: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %q, want empty", got)
	}
	if n != 1 {
		t.Errorf("consumed %d, want 1", n)
	}
}

func TestLengthEncodedStringTruncated(t *testing.T) {
	buf := appendLengthEncodedString(nil, []byte("hello"))
	_, _, _, err := readLengthEncodedString(buf[:2])
	if err == nil {
		t.Fatal("expected error for truncated buffer")
	}
}

func TestNullBitmapHelpers(t *testing.T) {
	n := 10
	bitmap := make([]byte, nullBitmapLen(n, 0))
	setNullBitmap(bitmap, 3)
	setNullBitmap(bitmap, 9)

	for i := 0; i < n; i++ {
		want := i == 3 || i == 9
		if got := nullBitmapSet(bitmap, i, 0); got != want {
			t.Errorf("bit %d = %v, want %v", i, got, want)
		}
	}
}

func TestUint64ToBytesAndString(t *testing.T) {
	b := uint64ToBytes(0x0102030405060708)
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(b, want) {
		t.Errorf("uint64ToBytes = %x, want %x", b, want)
	}
	if s := uint64ToString(12345); string(s) != "12345" {
		t.Errorf("uint64ToString = %q, want 12345", s)
	}
}
