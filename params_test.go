package mysql

import (
	"testing"
	"time"
)

func TestEncodeDecodeBinaryDateTime(t *testing.T) {
	loc := time.UTC
	want := time.Date(2024, time.March, 5, 13, 45, 9, 123000*1000, loc)

	encoded := encodeBinaryDateTime(want, loc)
	got, n, err := readBinaryDateTime(encoded, true, loc)
	if err != nil {
		t.Fatalf("readBinaryDateTime: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	gotTime, ok := got.(time.Time)
	if !ok {
		t.Fatalf("got %T, want time.Time", got)
	}
	if !gotTime.Equal(want) {
		t.Errorf("round trip = %v, want %v", gotTime, want)
	}
}

func TestEncodeDecodeBinaryDateTimeZero(t *testing.T) {
	encoded := encodeBinaryDateTime(time.Time{}, time.UTC)
	got, n, err := readBinaryDateTime(encoded, true, time.UTC)
	if err != nil {
		t.Fatalf("readBinaryDateTime: %v", err)
	}
	if n != 1 {
		t.Errorf("consumed %d bytes, want 1", n)
	}
	if gt, ok := got.(time.Time); !ok || !gt.IsZero() {
		t.Errorf("got %#v, want zero time.Time", got)
	}
}

func TestEncodeDecodeBinaryDuration(t *testing.T) {
	want := 30*time.Hour + 15*time.Minute + 9*time.Second + 250*time.Millisecond

	encoded := encodeBinaryDuration(want)
	got, n, err := readBinaryDuration(encoded)
	if err != nil {
		t.Fatalf("readBinaryDuration: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if got != want {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestEncodeDecodeBinaryDurationNegative(t *testing.T) {
	want := -(2*time.Hour + 3*time.Minute)
	encoded := encodeBinaryDuration(want)
	got, _, err := readBinaryDuration(encoded)
	if err != nil {
		t.Fatalf("readBinaryDuration: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestEncodeBinaryParamTypes(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		arg      any
		wantType fieldType
		unsigned bool
	}{
		{int64(5), fieldTypeLongLong, false},
		{uint64(5), fieldTypeLongLong, true},
		{int32(5), fieldTypeLong, false},
		{uint32(5), fieldTypeLong, true},
		{float64(1.5), fieldTypeDouble, false},
		{float32(1.5), fieldTypeFloat, false},
		{true, fieldTypeTiny, false},
		{"hello", fieldTypeVarString, false},
	}
	for _, c := range cases {
		typ, unsigned, encoded, _ := encodeBinaryParam(c.arg, loc)
		if typ != c.wantType {
			t.Errorf("encodeBinaryParam(%#v) type = %v, want %v", c.arg, typ, c.wantType)
		}
		if unsigned != c.unsigned {
			t.Errorf("encodeBinaryParam(%#v) unsigned = %v, want %v", c.arg, unsigned, c.unsigned)
		}
		if len(encoded) == 0 {
			t.Errorf("encodeBinaryParam(%#v) produced no bytes", c.arg)
		}
	}
}
