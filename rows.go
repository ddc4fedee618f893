// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "io"

// columnDef describes one column of a result set
// ResultSetMetaData), decoded from a Protocol::ColumnDefinition41 packet.
type columnDef struct {
	catalog      string
	schema       string
	table        string
	orgTable     string
	name         string
	orgName      string
	collationID  uint8
	columnLength uint32
	fieldType    fieldType
	flags        fieldFlag
	decimals     byte
}

func (c *columnDef) nullable() bool    { return c.flags&flagNotNULL == 0 }
func (c *columnDef) unsigned() bool    { return c.flags&flagUnsigned != 0 }
func (c *columnDef) autoIncrement() bool { return c.flags&flagAutoIncrement != 0 }
func (c *columnDef) primaryKey() bool  { return c.flags&flagPriKey != 0 }

// resultSet is the column/state bookkeeping shared by the text and
// binary row cursors.
type resultSet struct {
	columns     []columnDef
	columnNames []string
	done        bool
}

// ResultSet is the native cursor returned by Connection.Query and
// Statement.ExecuteQuery. A forward-only ResultSet
// streams rows without buffering them all in memory; UseCursorFetch
// additionally streams from the server itself via COM_STMT_FETCH
// (cursor_fetch.go) instead of a single large COM_STMT_EXECUTE reply.
type ResultSet struct {
	mc        *Connection
	rs        resultSet
	binary    bool
	stmt      *ServerPreparedStatement // non-nil only when cursor-fetch streaming
	eof       bool
	fetchSize uint32 // rows requested per COM_STMT_FETCH; 0 means defaultFetchSize
	closed    bool   // set by an explicit Close(); distinct from natural exhaustion

	rsType      ResultSetType        // TypeForwardOnly unless created via Connection.CreateStatement
	concurrency ResultSetConcurrency // informational; this driver never executes positioned updates
	scrollable  bool                 // true once bufferAll has populated buffered
	buffered    [][]any              // every row, decoded up front, for scroll-insensitive/sensitive sets
	pos         int                  // one-based cursor position; 0 = before-first, len+1 = after-last
}

// SetFetchSize overrides the number of rows requested per COM_STMT_FETCH
// for a cursor-backed result set, taking effect from the next fetch
// onward. It has no effect on a result set that isn't cursor-backed.
func (r *ResultSet) SetFetchSize(n int) {
	if n < 0 {
		n = 0
	}
	r.fetchSize = uint32(n)
	if r.stmt != nil {
		r.stmt.SetFetchSize(n)
	}
}

// Columns returns the result set's column names, in result order.
func (r *ResultSet) Columns() []string {
	if r.rs.columnNames != nil {
		return r.rs.columnNames
	}
	names := make([]string, len(r.rs.columns))
	for i := range names {
		if r.mc != nil && r.mc.cfg.ColumnsWithAlias && r.rs.columns[i].table != "" {
			names[i] = r.rs.columns[i].table + "." + r.rs.columns[i].name
		} else {
			names[i] = r.rs.columns[i].name
		}
	}
	r.rs.columnNames = names
	return names
}

// ColumnTypes returns per-column metadata for ResultSetMetaData-style
// introspection: declared type, nullability, signedness.
func (r *ResultSet) ColumnTypes() []ColumnType {
	out := make([]ColumnType, len(r.rs.columns))
	for i, c := range r.rs.columns {
		out[i] = ColumnType{
			Name:          c.name,
			Table:         c.orgTable,
			Type:          c.fieldType,
			Nullable:      c.nullable(),
			Unsigned:      c.unsigned(),
			AutoIncrement: c.autoIncrement(),
			PrimaryKey:    c.primaryKey(),
			Length:        c.columnLength,
			Decimals:      c.decimals,
		}
	}
	return out
}

// Close discards any unread rows and additional result sets so the
// connection is ready for the next command. Safe to call more than once.
func (r *ResultSet) Close() error {
	r.closed = true
	mc := r.mc
	if mc == nil {
		return nil
	}
	if mc.isBroken() {
		r.mc = nil
		return ErrInvalidConn
	}
	var err error
	if r.stmt != nil {
		err = r.closeCursor()
		mc.finish()
		r.mc = nil
		return err
	}
	if !r.rs.done {
		err = mc.readUntilEOF()
	}
	if err == nil {
		err = mc.discardResults()
	}
	mc.finish()
	r.mc = nil
	return err
}

// HasNextResultSet reports whether a CALL or multi-statement command
// left another result set pending.
func (r *ResultSet) HasNextResultSet() bool {
	if r.closed || r.mc == nil {
		return false
	}
	return r.mc.status&statusMoreResultsExists != 0
}

// NextResultSet advances to the next result set produced by the same
// command, returning io.EOF once none remain.
func (r *ResultSet) NextResultSet() error {
	if r.closed {
		return ErrResultSetClosed
	}
	resLen, err := r.nextNotEmptyResultSet()
	if err != nil {
		return err
	}
	r.rs.columns, err = r.mc.readColumns(resLen)
	return err
}

func (r *ResultSet) nextResultSet() (int, error) {
	if r.mc == nil {
		return 0, io.EOF
	}
	if r.mc.isBroken() {
		return 0, ErrInvalidConn
	}
	if !r.rs.done {
		if err := r.mc.readUntilEOF(); err != nil {
			return 0, err
		}
		r.rs.done = true
	}
	if !r.HasNextResultSet() {
		r.mc = nil
		return 0, io.EOF
	}
	r.rs = resultSet{}
	return r.mc.readResultSetHeaderPacket()
}

func (r *ResultSet) nextNotEmptyResultSet() (int, error) {
	for {
		resLen, err := r.nextResultSet()
		if err != nil {
			return 0, err
		}
		if resLen > 0 {
			return resLen, nil
		}
		r.rs.done = true
	}
}

// Next decodes the next row into dest, returning io.EOF when the result
// set is exhausted. Values follow the native type mapping of types.go.
// Calling Next after Close returns ErrResultSetClosed, distinguishable
// from natural exhaustion.
func (r *ResultSet) Next(dest []any) error {
	if r.closed {
		return ErrResultSetClosed
	}
	if r.scrollable {
		return r.nextBuffered(dest)
	}
	return r.nextStream(dest)
}

// nextBuffered serves Next from the in-memory snapshot bufferAll built,
// advancing the one-based cursor position scrollable operations share.
func (r *ResultSet) nextBuffered(dest []any) error {
	if r.pos >= len(r.buffered) {
		r.pos = len(r.buffered) + 1
		return io.EOF
	}
	r.pos++
	copy(dest, r.buffered[r.pos-1])
	return nil
}

// nextStream decodes the next row directly off the wire, the original
// forward-only behavior Next delegates to when no snapshot was taken.
func (r *ResultSet) nextStream(dest []any) error {
	mc := r.mc
	if mc == nil || r.rs.done {
		return io.EOF
	}
	if err := mc.canceled(); err != nil {
		return err
	}
	if mc.isBroken() {
		return ErrInvalidConn
	}
	if r.binary {
		return r.readBinaryRow(dest)
	}
	return r.readTextRow(dest)
}
