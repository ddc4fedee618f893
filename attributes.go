package mysql

import (
	"runtime"

	"github.com/google/uuid"
)

// driverName/driverVersion identify this client in connection attributes
// and in DatabaseMetaData.GetDriverName/GetDriverVersion.
const (
	driverName    = "gopherdb-mysql"
	driverVersion = "1.0.0"
)

// encodeConnectionAttributes builds the CLIENT_CONNECT_ATTRS payload sent
// in the handshake response: a length-encoded-integer total length
// followed by length-encoded-string key/value pairs. Grounded on
// go-mysql-org/go-mysql's genAttributes, widened to auto-populate the
// standard _client_name/_client_version/_os/_platform attributes plus a
// per-Connect _client_session_id (a domain-stack addition grounded on
// google/uuid from mickamy-sql-tap).
func encodeConnectionAttributes(cfg *Config) string {
	attrs := map[string]string{
		"_client_name":    driverName,
		"_client_version": driverVersion,
		"_os":             runtime.GOOS,
		"_platform":       runtime.GOARCH,
	}
	for k, v := range cfg.ConnectionAttributes {
		attrs[k] = v
	}
	if _, ok := attrs["_client_session_id"]; !ok {
		if id, err := uuid.NewRandom(); err == nil {
			attrs["_client_session_id"] = id.String()
		}
	}

	// The caller (writeHandshakeResponsePacket) prefixes this body with
	// its own one-byte length, so only the key/value pairs go here.
	var body []byte
	for k, v := range attrs {
		body = appendLengthEncodedString(body, []byte(k))
		body = appendLengthEncodedString(body, []byte(v))
	}
	return string(body)
}
