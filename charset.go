package mysql

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// charsetDecoder returns the transcoder for a collation's charset
// family, or nil when the column's bytes are already UTF-8 (or
// genuinely binary, where transcoding would corrupt them).
func charsetDecoder(collationID uint8) encoding.Encoding {
	switch charsetFamily(collationID) {
	case "latin1":
		return charmap.Windows1252
	case "gbk":
		return simplifiedchinese.GBK
	default:
		return nil
	}
}

// decodeCharset transcodes raw VARCHAR/CHAR/TEXT column bytes from
// their declared collation's charset to UTF-8, the step
// convertTextValue and readBinaryRow need before handing string column
// bytes to callers. Columns already UTF-8-compatible, or carrying the
// binary collation, pass through untouched.
func decodeCharset(raw []byte, collationID uint8) []byte {
	dec := charsetDecoder(collationID)
	if dec == nil {
		return raw
	}
	out, err := dec.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return out
}
