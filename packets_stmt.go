package mysql

import "encoding/binary"

// stmtPrepareResult is the decoded COM_STMT_PREPARE_OK response.
type stmtPrepareResult struct {
	id          uint32
	columnCount uint16
	paramCount  uint16
	warnings    uint16
}

// writeStmtPreparePacket issues COM_STMT_PREPARE for query.
func (mc *Connection) writeStmtPreparePacket(query string) error {
	return mc.writeCommandPacketStr(comStmtPrepare, query)
}

// readStmtPrepareResultPacket reads COM_STMT_PREPARE's response: the
// PREPARE_OK header, then paramCount param defs and columnCount column
// defs (both discarded here; the binary protocol only needs their
// counts and this driver does not type-check bound parameters against
// their declared column types).
func (mc *Connection) readStmtPrepareResultPacket() (stmtPrepareResult, error) {
	data, err := mc.readPacket()
	if err != nil {
		return stmtPrepareResult{}, err
	}
	if data[0] == iERR {
		return stmtPrepareResult{}, mc.handleErrorPacket(data)
	}
	if data[0] != iOK {
		return stmtPrepareResult{}, ErrMalformPkt
	}

	res := stmtPrepareResult{
		id:          binary.LittleEndian.Uint32(data[1:5]),
		columnCount: binary.LittleEndian.Uint16(data[5:7]),
		paramCount:  binary.LittleEndian.Uint16(data[7:9]),
	}
	if len(data) >= 13 {
		res.warnings = binary.LittleEndian.Uint16(data[11:13])
	}

	if res.paramCount > 0 {
		if _, err := mc.readColumns(int(res.paramCount)); err != nil {
			return res, err
		}
	}
	if res.columnCount > 0 {
		if _, err := mc.readColumns(int(res.columnCount)); err != nil {
			return res, err
		}
	}
	return res, nil
}

// writeStmtClosePacket issues COM_STMT_CLOSE, which the server never
// acknowledges.
func (mc *Connection) writeStmtClosePacket(stmtID uint32) error {
	return mc.writeCommandPacketUint32(comStmtClose, stmtID)
}

// writeStmtResetPacket issues COM_STMT_RESET, clearing any buffered
// long-data parameters and any open cursor for stmtID.
func (mc *Connection) writeStmtResetPacket(stmtID uint32) error {
	if err := mc.writeCommandPacketUint32(comStmtReset, stmtID); err != nil {
		return err
	}
	_, err := mc.readResultOK()
	return err
}

// writeCommandLongData issues COM_STMT_SEND_LONG_DATA for a single
// parameter, used when a []byte/string argument exceeds the driver's
// inline-encoding threshold.
func (mc *Connection) writeCommandLongData(stmtID uint32, paramID uint16, data []byte) error {
	mc.sequence = 0
	pktLen := 1 + 4 + 2 + len(data)
	buf, err := mc.buf.takeBuffer(pktLen + 4)
	if err != nil {
		return err
	}
	pos := 4
	buf[pos] = comStmtSendLongData
	pos++
	binary.LittleEndian.PutUint32(buf[pos:], stmtID)
	pos += 4
	binary.LittleEndian.PutUint16(buf[pos:], paramID)
	pos += 2
	pos += copy(buf[pos:], data)
	return mc.writePacket(buf[:pos])
}

// writeStmtFetchPacket issues COM_STMT_FETCH to pull the next batch of
// rows for a cursor opened by COM_STMT_EXECUTE with CURSOR_TYPE_READ_ONLY.
func (mc *Connection) writeStmtFetchPacket(stmtID uint32, fetchSize uint32) error {
	mc.sequence = 0
	data, err := mc.buf.takeSmallBuffer(4 + 1 + 4 + 4)
	if err != nil {
		return err
	}
	pos := 4
	data[pos] = comStmtFetch
	pos++
	binary.LittleEndian.PutUint32(data[pos:], stmtID)
	pos += 4
	binary.LittleEndian.PutUint32(data[pos:], fetchSize)
	pos += 4
	return mc.writePacket(data[:pos])
}
