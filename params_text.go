package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// interpolateParams substitutes '?' placeholders in query with args
// rendered as SQL literals, for callers that opt into InterpolateParams
// instead of a server-side prepared statement. Grounded on the
// client-side literal substitution go-sql-driver/mysql performs when
// interpolateParams=true; reimplemented here since that file wasn't
// part of the reference driver set.
func interpolateParams(query string, args []any, loc *time.Location, maxAllowedPacket int) (string, error) {
	if strings.Count(query, "?") != len(args) {
		return "", ErrParamCount
	}

	var buf strings.Builder
	buf.Grow(len(query) + 20*len(args))

	argIdx := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '?' {
			buf.WriteByte(c)
			continue
		}
		lit, err := paramLiteral(args[argIdx], loc)
		if err != nil {
			return "", err
		}
		buf.WriteString(lit)
		argIdx++

		if buf.Len() > maxAllowedPacket {
			return "", ErrPktTooLarge
		}
	}
	return buf.String(), nil
}

func paramLiteral(v any, loc *time.Location) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case int:
		return strconv.Itoa(val), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case decimal.Decimal:
		return val.String(), nil
	case []byte:
		if val == nil {
			return "NULL", nil
		}
		return "_binary'" + escapeBytes(val) + "'", nil
	case string:
		return "'" + escapeString(val) + "'", nil
	case time.Time:
		if val.IsZero() {
			return "'0000-00-00'", nil
		}
		return "'" + val.In(loc).Format("2006-01-02 15:04:05.999999") + "'", nil
	default:
		return "", &InvalidArgumentError{Msg: fmt.Sprintf("unsupported parameter type %T", v)}
	}
}

// escapeString escapes the bytes MySQL's NO_BACKSLASH_ESCAPES-off mode
// requires quoting inside a single-quoted string literal.
func escapeString(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\x00':
			buf.WriteString(`\0`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\\':
			buf.WriteString(`\\`)
		case '\'':
			buf.WriteString(`\'`)
		case '"':
			buf.WriteString(`\"`)
		case '\x1a':
			buf.WriteString(`\Z`)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}

func escapeBytes(b []byte) string {
	return escapeString(string(b))
}
