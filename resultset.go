package mysql

import (
	"fmt"
	"io"
)

// ColumnType is the native equivalent of ResultSetMetaData's per-column
// accessors, returned by ResultSet.ColumnTypes.
type ColumnType struct {
	Name          string
	Table         string
	Type          fieldType
	Nullable      bool
	Unsigned      bool
	AutoIncrement bool
	PrimaryKey    bool
	Length        uint32
	Decimals      byte
}

// DatabaseTypeName returns the SQL type name a JDBC-style
// getColumnTypeName would report for this column.
func (c ColumnType) DatabaseTypeName() string {
	switch c.Type {
	case fieldTypeTiny:
		return "TINYINT"
	case fieldTypeShort:
		return "SMALLINT"
	case fieldTypeInt24:
		return "MEDIUMINT"
	case fieldTypeLong:
		return "INT"
	case fieldTypeLongLong:
		return "BIGINT"
	case fieldTypeFloat:
		return "FLOAT"
	case fieldTypeDouble:
		return "DOUBLE"
	case fieldTypeDecimal, fieldTypeNewDecimal:
		return "DECIMAL"
	case fieldTypeBit:
		return "BIT"
	case fieldTypeDate, fieldTypeNewDate:
		return "DATE"
	case fieldTypeTime:
		return "TIME"
	case fieldTypeTimestamp:
		return "TIMESTAMP"
	case fieldTypeDateTime:
		return "DATETIME"
	case fieldTypeYear:
		return "YEAR"
	case fieldTypeVarChar, fieldTypeVarString:
		return "VARCHAR"
	case fieldTypeString:
		return "CHAR"
	case fieldTypeBLOB, fieldTypeTinyBLOB, fieldTypeMediumBLOB, fieldTypeLongBLOB:
		return "BLOB"
	case fieldTypeJSON:
		return "JSON"
	case fieldTypeEnum:
		return "ENUM"
	case fieldTypeSet:
		return "SET"
	case fieldTypeGeometry:
		return "GEOMETRY"
	case fieldTypeNULL:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// bufferAll drains the remaining stream into r.buffered and marks r
// scrollable, giving absolute/relative/previous/first/last positioning
// over an otherwise forward-only wire cursor. Called by Statement.Query
// when the owning Statement was created with a scrollable ResultSetType.
func (r *ResultSet) bufferAll() error {
	cols := r.Columns()
	for {
		dest := make([]any, len(cols))
		err := r.nextStream(dest)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		r.buffered = append(r.buffered, dest)
	}
	r.scrollable = true
	r.pos = 0
	return nil
}

// scrollGuard rejects positioning operations on a ResultSet that wasn't
// created scrollable; only next/Close are valid on TypeForwardOnly.
func (r *ResultSet) scrollGuard() error {
	if r.closed {
		return ErrResultSetClosed
	}
	if !r.scrollable {
		return ErrUnsupportedCur
	}
	return nil
}

// IsBeforeFirst reports whether the cursor sits before the first row.
func (r *ResultSet) IsBeforeFirst() bool { return r.scrollable && r.pos == 0 }

// IsAfterLast reports whether the cursor sits after the last row.
func (r *ResultSet) IsAfterLast() bool { return r.scrollable && r.pos == len(r.buffered)+1 }

// IsFirst reports whether the cursor is positioned on the first row.
func (r *ResultSet) IsFirst() bool { return r.scrollable && r.pos == 1 && len(r.buffered) > 0 }

// IsLast reports whether the cursor is positioned on the last row.
func (r *ResultSet) IsLast() bool {
	return r.scrollable && len(r.buffered) > 0 && r.pos == len(r.buffered)
}

// GetRow returns the cursor's current one-based row position, 0 when
// before the first row.
func (r *ResultSet) GetRow() int {
	if !r.scrollable || r.pos > len(r.buffered) {
		return 0
	}
	return r.pos
}

// BeforeFirst repositions the cursor before the first row.
func (r *ResultSet) BeforeFirst() error {
	if err := r.scrollGuard(); err != nil {
		return err
	}
	r.pos = 0
	return nil
}

// AfterLast repositions the cursor after the last row.
func (r *ResultSet) AfterLast() error {
	if err := r.scrollGuard(); err != nil {
		return err
	}
	r.pos = len(r.buffered) + 1
	return nil
}

// First moves to the first row, reporting whether the result set is
// non-empty.
func (r *ResultSet) First(dest []any) (bool, error) {
	if err := r.scrollGuard(); err != nil {
		return false, err
	}
	if len(r.buffered) == 0 {
		r.pos = 1
		return false, nil
	}
	r.pos = 1
	copy(dest, r.buffered[0])
	return true, nil
}

// Last moves to the last row, reporting whether the result set is
// non-empty.
func (r *ResultSet) Last(dest []any) (bool, error) {
	if err := r.scrollGuard(); err != nil {
		return false, err
	}
	if len(r.buffered) == 0 {
		r.pos = 1
		return false, nil
	}
	r.pos = len(r.buffered)
	copy(dest, r.buffered[r.pos-1])
	return true, nil
}

// Absolute moves to row n (one-based; negative counts back from the
// last row, as in java.sql.ResultSet.absolute), reporting whether that
// position landed on a row rather than before-first/after-last.
func (r *ResultSet) Absolute(n int, dest []any) (bool, error) {
	if err := r.scrollGuard(); err != nil {
		return false, err
	}
	if n < 0 {
		n = len(r.buffered) + 1 + n
	}
	if n < 1 {
		r.pos = 0
		return false, nil
	}
	if n > len(r.buffered) {
		r.pos = len(r.buffered) + 1
		return false, nil
	}
	r.pos = n
	copy(dest, r.buffered[r.pos-1])
	return true, nil
}

// Relative moves k rows forward (negative moves backward) from the
// current position, reporting whether that landed on a row.
func (r *ResultSet) Relative(k int, dest []any) (bool, error) {
	if err := r.scrollGuard(); err != nil {
		return false, err
	}
	return r.Absolute(r.pos+k, dest)
}

// Previous moves to the preceding row, the mirror image of Next for a
// scrollable ResultSet.
func (r *ResultSet) Previous(dest []any) (bool, error) {
	if err := r.scrollGuard(); err != nil {
		return false, err
	}
	return r.Absolute(r.pos-1, dest)
}

// readColumns reads count Protocol::ColumnDefinition41 packets followed
// by the terminating EOF, absent when CLIENT_DEPRECATE_EOF is in effect.
func (mc *Connection) readColumns(count int) ([]columnDef, error) {
	columns := make([]columnDef, count)

	for i := 0; ; i++ {
		data, err := mc.readPacket()
		if err != nil {
			return nil, err
		}

		if data[0] == iEOF && (len(data) == 5 || len(data) == 1) {
			if i == count {
				return columns, nil
			}
			return nil, fmt.Errorf("column count mismatch n:%d len:%d", count, len(columns))
		}

		pos, err := skipLengthEncodedString(data) // catalog
		if err != nil {
			return nil, err
		}
		n, err := skipLengthEncodedString(data[pos:]) // schema
		if err != nil {
			return nil, err
		}
		pos += n

		tbl, _, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return nil, err
		}
		columns[i].table = string(tbl)
		pos += n

		orgTbl, _, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return nil, err
		}
		columns[i].orgTable = string(orgTbl)
		pos += n

		name, _, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return nil, err
		}
		columns[i].name = string(name)
		pos += n

		orgName, _, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return nil, err
		}
		columns[i].orgName = string(orgName)
		pos += n

		pos++ // length of fixed-length fields, always 0x0c

		columns[i].collationID = data[pos]
		pos += 2 // collation (2 bytes, only the low byte is distinct ids we track)

		columns[i].columnLength = uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16 | uint32(data[pos+3])<<24
		pos += 4

		columns[i].fieldType = fieldType(data[pos])
		pos++

		columns[i].flags = fieldFlag(uint16(data[pos]) | uint16(data[pos+1])<<8)
		pos += 2

		columns[i].decimals = data[pos]
	}
}
