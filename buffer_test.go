package mysql

import (
	"bytes"
	"strings"
	"testing"
)

func TestWireBufferReadNext(t *testing.T) {
	buf := newWireBuffer(strings.NewReader("hello world"))

	got, err := buf.readNext(5)
	if err != nil {
		t.Fatalf("readNext: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want hello", got)
	}

	got, err = buf.readNext(6)
	if err != nil {
		t.Fatalf("readNext: %v", err)
	}
	if string(got) != " world" {
		t.Errorf("got %q, want ' world'", got)
	}
}

func TestWireBufferTakeBuffer(t *testing.T) {
	buf := newWireBuffer(bytes.NewReader(nil))

	got, err := buf.takeBuffer(10)
	if err != nil {
		t.Fatalf("takeBuffer: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("len(got) = %d, want 10", len(got))
	}
}

func TestWireBufferTakeCompleteBuffer(t *testing.T) {
	buf := newWireBuffer(bytes.NewReader(nil))
	got, err := buf.takeCompleteBuffer()
	if err != nil {
		t.Fatalf("takeCompleteBuffer: %v", err)
	}
	if len(got) != cap(got) {
		t.Errorf("len/cap mismatch: %d/%d", len(got), cap(got))
	}
}
