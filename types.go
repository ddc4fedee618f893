package mysql

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// readTextRow decodes one Protocol::TextResultsetRow into dest, used
// for COM_QUERY results and for client-side prepared statements.
// Grounded on the text-protocol row decoder's documented type mapping.
func (r *ResultSet) readTextRow(dest []any) error {
	mc := r.mc
	data, err := mc.readPacket()
	if err != nil {
		return err
	}

	if data[0] == iEOF && len(data) == 5 {
		r.rs.done = true
		if !r.HasNextResultSet() {
			r.mc = nil
		}
		return io.EOF
	}
	if data[0] == iERR {
		r.rs.done = true
		return mc.handleErrorPacket(data)
	}

	pos := 0
	for i := range dest {
		raw, isNull, n, err := readLengthEncodedString(data[pos:])
		pos += n
		if err != nil {
			return err
		}
		if isNull {
			dest[i] = nil
			continue
		}
		dest[i], err = convertTextValue(r.rs.columns[i], raw, mc.parseTime, mc.cfg.Loc)
		if err != nil {
			return err
		}
	}
	return nil
}

// readBinaryRow decodes one Protocol::BinaryResultsetRow, used by
// server-side prepared statement execution. Grounded on the binary
// (*binaryRows).readRow.
func (r *ResultSet) readBinaryRow(dest []any) error {
	mc := r.mc
	data, err := mc.readPacket()
	if err != nil {
		return err
	}

	if data[0] == iEOF && len(data) == 5 {
		status := readStatus(data[3:5])
		if r.stmt != nil && status&statusCursorExists != 0 && status&statusLastRowSent == 0 {
			if err := r.fetchMore(); err != nil {
				return err
			}
			return r.readBinaryRow(dest)
		}
		r.rs.done = true
		if !r.HasNextResultSet() {
			r.mc = nil
		}
		return io.EOF
	}
	if data[0] == iERR {
		r.rs.done = true
		return mc.handleErrorPacket(data)
	}
	if data[0] != iOK {
		return ErrMalformPkt
	}

	pos := 1 + nullBitmapLen(len(dest), 2)
	nullMask := data[1:pos]

	for i := range dest {
		if nullBitmapSet(nullMask, i, 2) {
			dest[i] = nil
			continue
		}

		col := r.rs.columns[i]
		switch col.fieldType {
		case fieldTypeNULL:
			dest[i] = nil

		case fieldTypeTiny:
			v := data[pos]
			pos++
			if col.unsigned() {
				dest[i] = uint64(v)
			} else {
				dest[i] = int64(int8(v))
			}

		case fieldTypeShort, fieldTypeYear:
			v := binary.LittleEndian.Uint16(data[pos:])
			pos += 2
			if col.unsigned() {
				dest[i] = uint64(v)
			} else {
				dest[i] = int64(int16(v))
			}

		case fieldTypeInt24, fieldTypeLong:
			v := binary.LittleEndian.Uint32(data[pos:])
			pos += 4
			if col.unsigned() {
				dest[i] = uint64(v)
			} else {
				dest[i] = int64(int32(v))
			}

		case fieldTypeLongLong:
			v := binary.LittleEndian.Uint64(data[pos:])
			pos += 8
			if col.unsigned() {
				dest[i] = v
			} else {
				dest[i] = int64(v)
			}

		case fieldTypeFloat:
			dest[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[pos:])))
			pos += 4

		case fieldTypeDouble:
			dest[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[pos:]))
			pos += 8

		case fieldTypeDecimal, fieldTypeNewDecimal:
			raw, _, n, err := readLengthEncodedString(data[pos:])
			if err != nil {
				return err
			}
			pos += n
			dest[i], err = decimal.NewFromString(string(raw))
			if err != nil {
				return err
			}

		case fieldTypeDate, fieldTypeNewDate, fieldTypeTimestamp, fieldTypeDateTime:
			t, n, err := readBinaryDateTime(data[pos:], mc.parseTime, mc.cfg.Loc)
			if err != nil {
				return err
			}
			pos += n
			dest[i] = t

		case fieldTypeTime:
			d, n, err := readBinaryDuration(data[pos:])
			if err != nil {
				return err
			}
			pos += n
			dest[i] = d

		case fieldTypeVarChar, fieldTypeVarString, fieldTypeString,
			fieldTypeBLOB, fieldTypeTinyBLOB, fieldTypeMediumBLOB, fieldTypeLongBLOB,
			fieldTypeBit, fieldTypeEnum, fieldTypeSet, fieldTypeJSON, fieldTypeGeometry:
			raw, _, n, err := readLengthEncodedString(data[pos:])
			if err != nil {
				return err
			}
			pos += n
			dest[i] = decodeCharset(append([]byte(nil), raw...), col.collationID)

		default:
			return fmt.Errorf("mysql: unsupported column type %d", col.fieldType)
		}
	}
	return nil
}

// convertTextValue interprets the ASCII-encoded bytes the text
// protocol always uses, regardless of the column's declared binary
// type, converting to the same Go types readBinaryRow produces so
// callers see one type mapping no matter which protocol served a row.
func convertTextValue(col columnDef, raw []byte, parseTime bool, loc *time.Location) (any, error) {
	s := string(raw)
	switch col.fieldType {
	case fieldTypeTiny, fieldTypeShort, fieldTypeInt24, fieldTypeLong, fieldTypeYear:
		if col.unsigned() {
			var v uint64
			_, err := fmt.Sscanf(s, "%d", &v)
			return v, err
		}
		var v int64
		_, err := fmt.Sscanf(s, "%d", &v)
		return v, err

	case fieldTypeLongLong:
		if col.unsigned() {
			var v uint64
			_, err := fmt.Sscanf(s, "%d", &v)
			return v, err
		}
		var v int64
		_, err := fmt.Sscanf(s, "%d", &v)
		return v, err

	case fieldTypeFloat, fieldTypeDouble:
		var v float64
		_, err := fmt.Sscanf(s, "%g", &v)
		return v, err

	case fieldTypeDecimal, fieldTypeNewDecimal:
		return decimal.NewFromString(s)

	case fieldTypeDate, fieldTypeNewDate, fieldTypeTimestamp, fieldTypeDateTime:
		if !parseTime {
			return raw, nil
		}
		return parseDateTimeText(s, loc)

	case fieldTypeTime:
		if !parseTime {
			return raw, nil
		}
		return time.ParseDuration(textDurationToGoDuration(s))

	default:
		return decodeCharset(append([]byte(nil), raw...), col.collationID), nil
	}
}

func textDurationToGoDuration(s string) string {
	// MySQL TIME text form is [-]HH:MM:SS[.fraction]; re-render as a Go
	// duration literal since time.ParseDuration doesn't accept colons.
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var h, m int
	var sec float64
	fmt.Sscanf(s, "%d:%d:%f", &h, &m, &sec)
	d := fmt.Sprintf("%dh%dm%fs", h, m, sec)
	if neg {
		return "-" + d
	}
	return d
}

func parseDateTimeText(s string, loc *time.Location) (time.Time, error) {
	formats := []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"}
	var lastErr error
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, loc); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// readBinaryDateTime decodes MYSQL_TYPE_DATE/DATETIME/TIMESTAMP's
// variable-length binary encoding (0, 4, 7 or 11 bytes).
func readBinaryDateTime(data []byte, parseTime bool, loc *time.Location) (any, int, error) {
	length := int(data[0])
	if length == 0 {
		if parseTime {
			return time.Time{}, 1, nil
		}
		return []byte("0000-00-00"), 1, nil
	}
	if len(data) < 1+length {
		return nil, 0, ErrMalformPkt
	}
	b := data[1 : 1+length]

	year := int(binary.LittleEndian.Uint16(b))
	month := int(b[2])
	day := int(b[3])
	var hour, minute, second, microsec int
	if length >= 7 {
		hour = int(b[4])
		minute = int(b[5])
		second = int(b[6])
	}
	if length == 11 {
		microsec = int(binary.LittleEndian.Uint32(b[7:]))
	}

	if !parseTime {
		s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d", year, month, day, hour, minute, second, microsec)
		return []byte(s), 1 + length, nil
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, microsec*1000, loc), 1 + length, nil
}

// readBinaryDuration decodes MYSQL_TYPE_TIME's variable-length binary
// encoding into a time.Duration.
func readBinaryDuration(data []byte) (time.Duration, int, error) {
	length := int(data[0])
	if length == 0 {
		return 0, 1, nil
	}
	if len(data) < 1+length {
		return 0, 0, ErrMalformPkt
	}
	b := data[1 : 1+length]
	neg := b[0] != 0
	days := binary.LittleEndian.Uint32(b[1:5])
	hours := b[5]
	minutes := b[6]
	seconds := b[7]
	var microsec uint32
	if length == 12 {
		microsec = binary.LittleEndian.Uint32(b[8:])
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(microsec)*time.Microsecond
	if neg {
		d = -d
	}
	return d, 1 + length, nil
}
