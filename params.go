package mysql

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// longDataThreshold is the inline-parameter size past which a value is
// sent via COM_STMT_SEND_LONG_DATA instead of embedded in
// COM_STMT_EXECUTE.
const longDataThreshold = 1 << 16 // 64KiB, conservative relative to maxAllowedPacket

// writeExecutePacket builds and sends a COM_STMT_EXECUTE for stmt,
// encoding args per MySQL's binary protocol: a null bitmap, a
// new-params-bound-flag byte, one (type, flag) pair per param, then the
// binary-encoded values (long values pre-sent via
// COM_STMT_SEND_LONG_DATA instead of inlined). Grounded on the
// the binary protocol's documented parameter encoding.
func (s *ServerPreparedStatement) writeExecutePacket(args []any, cursorType byte) error {
	mc := s.mc
	if len(args) != int(s.paramCount) {
		return ErrParamCount
	}

	nullBitmap := make([]byte, nullBitmapLen(len(args), 0))
	paramTypes := make([]byte, len(args)*2)
	var paramValues []byte
	var longData []struct {
		id   uint16
		data []byte
	}

	for i, arg := range args {
		if arg == nil {
			setNullBitmap(nullBitmap, i)
			paramTypes[i*2] = byte(fieldTypeNULL)
			continue
		}

		typ, unsigned, encoded, isLong := encodeBinaryParam(arg, mc.cfg.Loc)
		paramTypes[i*2] = byte(typ)
		if unsigned {
			paramTypes[i*2+1] = 0x80
		}

		if isLong && len(encoded) > longDataThreshold {
			longData = append(longData, struct {
				id   uint16
				data []byte
			}{uint16(i), encoded})
			continue
		}
		paramValues = append(paramValues, encoded...)
	}

	for _, ld := range longData {
		if err := mc.writeCommandLongData(s.id, ld.id, ld.data); err != nil {
			return err
		}
	}

	mc.sequence = 0
	pktLen := 1 + 4 + 1 + 4 + 1
	if len(args) > 0 {
		pktLen += len(nullBitmap) + 1 + len(paramTypes) + len(paramValues)
	}

	data, err := mc.buf.takeBuffer(pktLen + 4)
	if err != nil {
		return err
	}

	pos := 4
	data[pos] = comStmtExecute
	pos++
	binary.LittleEndian.PutUint32(data[pos:], s.id)
	pos += 4
	data[pos] = cursorType
	pos++
	binary.LittleEndian.PutUint32(data[pos:], 1) // iteration count, always 1
	pos += 4

	if len(args) > 0 {
		pos += copy(data[pos:], nullBitmap)
		data[pos] = 1 // new-params-bound flag
		pos++
		pos += copy(data[pos:], paramTypes)
		pos += copy(data[pos:], paramValues)
	}

	return mc.writePacket(data[:pos])
}

// encodeBinaryParam returns the wire fieldType, whether it is unsigned,
// and its length-encoded (or fixed-size) binary payload for one
// argument. isLong indicates the payload may be worth sending via
// COM_STMT_SEND_LONG_DATA instead of inlining.
func encodeBinaryParam(arg any, loc *time.Location) (typ fieldType, unsigned bool, encoded []byte, isLong bool) {
	switch v := arg.(type) {
	case int64:
		return fieldTypeLongLong, false, uint64ToBytes(uint64(v)), false
	case int:
		return fieldTypeLongLong, false, uint64ToBytes(uint64(int64(v))), false
	case int32:
		return fieldTypeLong, false, le32(uint32(v)), false
	case int16:
		return fieldTypeShort, false, le16(uint16(v)), false
	case int8:
		return fieldTypeTiny, false, []byte{byte(v)}, false
	case uint64:
		return fieldTypeLongLong, true, uint64ToBytes(v), false
	case uint32:
		return fieldTypeLong, true, le32(v), false
	case uint16:
		return fieldTypeShort, true, le16(v), false
	case uint8:
		return fieldTypeTiny, true, []byte{v}, false
	case bool:
		b := byte(0)
		if v {
			b = 1
		}
		return fieldTypeTiny, false, []byte{b}, false
	case float64:
		return fieldTypeDouble, false, le64(math.Float64bits(v)), false
	case float32:
		return fieldTypeFloat, false, le32(math.Float32bits(v)), false
	case decimal.Decimal:
		return fieldTypeNewDecimal, false, appendLengthEncodedString(nil, []byte(v.String())), true
	case []byte:
		return fieldTypeBLOB, false, appendLengthEncodedString(nil, v), true
	case string:
		return fieldTypeVarString, false, appendLengthEncodedString(nil, []byte(v)), true
	case time.Time:
		return fieldTypeDateTime, false, encodeBinaryDateTime(v, loc), false
	case time.Duration:
		return fieldTypeTime, false, encodeBinaryDuration(v), false
	default:
		s := fmt.Sprintf("%v", v)
		return fieldTypeVarString, false, appendLengthEncodedString(nil, []byte(s)), true
	}
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func encodeBinaryDateTime(t time.Time, loc *time.Location) []byte {
	if t.IsZero() {
		return []byte{0}
	}
	t = t.In(loc)
	micro := t.Nanosecond() / 1000
	b := make([]byte, 12)
	b[0] = 11
	binary.LittleEndian.PutUint16(b[1:], uint16(t.Year()))
	b[3] = byte(t.Month())
	b[4] = byte(t.Day())
	b[5] = byte(t.Hour())
	b[6] = byte(t.Minute())
	b[7] = byte(t.Second())
	binary.LittleEndian.PutUint32(b[8:], uint32(micro))
	return b
}

func encodeBinaryDuration(d time.Duration) []byte {
	if d == 0 {
		return []byte{0}
	}
	neg := byte(0)
	if d < 0 {
		neg = 1
		d = -d
	}
	days := uint32(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := byte(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := byte(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := byte(d / time.Second)
	d -= time.Duration(seconds) * time.Second
	micro := uint32(d / time.Microsecond)

	b := make([]byte, 13)
	b[0] = 12
	b[1] = neg
	binary.LittleEndian.PutUint32(b[2:], days)
	b[6] = hours
	b[7] = minutes
	b[8] = seconds
	binary.LittleEndian.PutUint32(b[9:], micro)
	return b
}
