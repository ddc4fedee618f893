// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"io"
	"time"
)

const defaultBufSize = 4 * 1024
const maxCachedBufSize = 256 * 1024

// wireBuffer is used for both reading and writing a connection's packets.
// This is possible since communication on a connection is synchronous: the
// session never reads and writes at the same time. It is similar to
// bufio.Reader/Writer but zero-copy-ish and backed by a double-buffering
// scheme so a packet returned by readNext survives the next read.
type wireBuffer struct {
	buf     []byte // buf is a byte buffer whose length and capacity are equal.
	r       io.Reader
	length  int
	timeout time.Duration
	dbuf    [2][]byte // the two byte slices that back this buffer
	flipcnt uint      // current buffer counter for double-buffering
}

// newWireBuffer allocates a buffer that reads through r, which is
// expected to be a cancellation-aware reader such as a chanReader backed
// by the connection's readLoop.
func newWireBuffer(r io.Reader) wireBuffer {
	fg := make([]byte, defaultBufSize)
	return wireBuffer{
		buf:  fg,
		r:    r,
		dbuf: [2][]byte{fg, nil},
	}
}

// flip schedules the background buffer to replace the active one on the
// next fill; this is how readNext can hand out a slice of the active
// buffer and still allow the next read to proceed without overwriting it.
func (b *wireBuffer) flip() {
	b.flipcnt++
}

// readNext reads and returns exactly n bytes, reusing one of the two
// double-buffer slots rather than allocating on every call.
func (b *wireBuffer) readNext(n int) ([]byte, error) {
	dest := b.dbuf[b.flipcnt&1]
	if cap(dest) < n {
		dest = make([]byte, n)
		b.dbuf[b.flipcnt&1] = dest
	}
	dest = dest[:n]
	if _, err := io.ReadFull(b.r, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// takeBuffer returns a buffer with the requested size. If possible, a
// slice from the existing buffer is returned; otherwise a bigger buffer
// is made. Only one buffer (total) can be used at a time.
func (b *wireBuffer) takeBuffer(length int) ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	if length <= cap(b.buf) {
		return b.buf[:length], nil
	}
	if length < maxPacketSize {
		b.buf = make([]byte, length)
		return b.buf, nil
	}
	return make([]byte, length), nil
}

// takeSmallBuffer is a shortcut usable when length is known to be
// smaller than defaultBufSize. Only one buffer (total) can be used at a
// time.
func (b *wireBuffer) takeSmallBuffer(length int) ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	return b.buf[:length], nil
}

// takeCompleteBuffer returns the complete existing buffer, for callers
// that don't know the needed size up front. cap and len of the result
// are equal. Only one buffer (total) can be used at a time.
func (b *wireBuffer) takeCompleteBuffer() ([]byte, error) {
	if b.length > 0 {
		return nil, ErrBusyBuffer
	}
	return b.buf, nil
}

// store records buf, an updated buffer, as the new scratch buffer if
// it's suitable to do so.
func (b *wireBuffer) store(buf []byte) error {
	if b.length > 0 {
		return ErrBusyBuffer
	} else if cap(buf) <= maxPacketSize && cap(buf) > cap(b.buf) {
		b.buf = buf[:cap(buf)]
	}
	return nil
}
