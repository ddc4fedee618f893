// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"encoding/binary"
	"fmt"
)

// readPacket reads one logical MySQL packet off the wire, transparently
// reassembling packets that were split across multiple 16MiB physical
// packets. Grounded on the reference driver's readPacket.
func (mc *Connection) readPacket() ([]byte, error) {
	var prevData []byte
	for {
		header, err := mc.buf.readNext(4)
		if err != nil {
			mc.cleanup()
			return nil, err
		}

		pktLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)

		if header[3] != mc.sequence {
			mc.cleanup()
			if header[3] > mc.sequence {
				return nil, ErrPktSyncMul
			}
			return nil, ErrPktSync
		}
		mc.sequence++

		if pktLen == 0 {
			if prevData == nil {
				mc.cleanup()
				return nil, ErrInvalidConn
			}
			return prevData, nil
		}

		data, err := mc.buf.readNext(pktLen)
		if err != nil {
			mc.cleanup()
			return nil, err
		}

		if prevData == nil {
			if pktLen < maxPacketSize {
				return data, nil
			}
			prevData = data
			continue
		}

		prevData = append(prevData, data...)
		if pktLen < maxPacketSize {
			return prevData, nil
		}
	}
}

// writePacket frames data (whose first 4 bytes are reserved header
// space) and writes it, splitting across multiple packets if data
// exceeds the 16MiB packet size limit.
func (mc *Connection) writePacket(data []byte) error {
	pktLen := len(data) - 4

	if pktLen > mc.maxAllowedPacket {
		return ErrPktTooLarge
	}

	for {
		var size int
		if pktLen >= maxPacketSize {
			data[0] = 0xff
			data[1] = 0xff
			data[2] = 0xff
			size = maxPacketSize
		} else {
			data[0] = byte(pktLen)
			data[1] = byte(pktLen >> 8)
			data[2] = byte(pktLen >> 16)
			size = pktLen
		}
		data[3] = mc.sequence

		n, err := mc.writeRaw(data[:4+size])
		if err != nil {
			mc.cleanup()
			if n == 0 && pktLen == len(data)-4 {
				return errBadConnNoWrite
			}
			return err
		}
		mc.sequence++
		if size != maxPacketSize {
			return nil
		}
		pktLen -= size
		data = data[size:]
	}
}

func (mc *Connection) writeRaw(data []byte) (int, error) {
	select {
	case mc.writeReq <- data:
	case <-mc.closech:
		return 0, ErrInvalidConn
	}
	select {
	case res := <-mc.writeRes:
		return res.n, res.err
	case <-mc.closech:
		return 0, ErrInvalidConn
	}
}

// handshake performs the full connect sequence: read the server's
// initial handshake, upgrade to TLS if requested, send
// HandshakeResponse41, then run the authentication plugin negotiation
// to completion.
func (mc *Connection) handshake() error {
	authData, plugin, err := mc.readHandshakePacket()
	if err != nil {
		mc.cleanup()
		return err
	}

	if plugin == "" {
		plugin = authNativePassword
	}
	mc.session.setAuthenticating(plugin, 0)

	authResp, err := mc.genAuthResponse(authData, plugin)
	if err != nil {
		mc.cleanup()
		return err
	}

	if err := mc.writeHandshakeResponsePacket(authResp, plugin); err != nil {
		return err
	}

	return mc.handleAuthResult(mc.cfg)
}

// readHandshakePacket parses the server's initial Protocol::Handshake
// packet, returning the auth plugin data (salt) and the plugin name it
// advertised. Grounded on go-mysql-org/go-mysql's readInitialHandshake.
func (mc *Connection) readHandshakePacket() ([]byte, string, error) {
	data, err := mc.readPacket()
	if err != nil {
		return nil, "", err
	}

	if data[0] == iERR {
		return nil, "", mc.handleErrorPacket(data)
	}
	if data[0] < minProtocolVersion {
		return nil, "", fmt.Errorf("%w: protocol version %d", ErrOldProtocol, data[0])
	}

	pos := 1
	end := bytesIndex(data[pos:], 0)
	mc.serverVersion = string(data[pos : pos+end])
	pos += end + 1

	mc.connectionID = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	authData := make([]byte, 0, 20)
	authData = append(authData, data[pos:pos+8]...)
	pos += 8 + 1 // salt part 1 + filler

	mc.flags = clientFlag(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2

	if len(data) <= pos {
		return authData, "", nil
	}

	pos++ // charset
	mc.status = statusFlag(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2
	mc.flags |= clientFlag(binary.LittleEndian.Uint16(data[pos:])) << 16
	pos += 2
	pos++ // auth plugin data length, consumed below via authDataLen

	authDataLen := int(data[pos-1])
	pos += 10 // reserved

	var plugin string
	if mc.flags&clientSecureConn != 0 {
		remain := authDataLen - 8
		if remain < 0 || remain > 13 {
			remain = 12
		}
		authData = append(authData, data[pos:pos+remain]...)
		pos += remain + 1

		if mc.flags&clientPluginAuth != 0 {
			end := bytesIndex(data[pos:], 0)
			if end < 0 {
				plugin = string(data[pos:])
			} else {
				plugin = string(data[pos : pos+end])
			}
		}
	}

	mc.authSeed = authData
	return authData, plugin, nil
}

func bytesIndex(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// writeHandshakeResponsePacket sends HandshakeResponse41,
// upgrading to TLS first when the configuration calls for it. Grounded
// on the reference driver's writeHandshakeResponsePacket and
// go-mysql-org/go-mysql's writeAuthHandshake for the attribute/TLS
// wiring.
func (mc *Connection) writeHandshakeResponsePacket(authResp []byte, plugin string) error {
	clientFlags := clientProtocol41 | clientSecureConn | clientLongPassword |
		clientTransactions | clientLocalFiles | clientPluginAuth |
		clientMultiResults | clientPSMultiResults |
		clientPluginAuthLenEncClientData | clientConnectAttrs

	// DEPRECATE_EOF is negotiated whenever the server offers it; the
	// terminator packet still carries the EOF header byte either way, so
	// row/column decoding needs no further change for it.
	if mc.flags&clientDeprecateEOF != 0 {
		clientFlags |= clientDeprecateEOF
	}

	if mc.cfg.ClientFoundRows {
		clientFlags |= clientFoundRows
	}
	if mc.cfg.MultiStatements {
		clientFlags |= clientMultiStatements
	}
	if mc.cfg.DBName != "" {
		clientFlags |= clientConnectWithDB
	}

	collationID, ok := collationIDByName(mc.cfg.Collation)
	if !ok {
		collationID, _ = collationIDByName(defaultCollation)
	}
	mc.collation = mc.cfg.Collation

	useTLS := mc.cfg.SSLMode != SSLNone && mc.cfg.TLS != nil
	if useTLS {
		clientFlags |= clientSSL
	}

	pktLen := 4 + 4 + 4 + 1 + 23
	pktLen += len(mc.cfg.User) + 1
	pktLen += 1 + len(authResp)
	if mc.cfg.DBName != "" {
		pktLen += len(mc.cfg.DBName) + 1
	}
	pktLen += len(plugin) + 1
	pktLen += 1 + len(mc.connector.encodedAttributes)

	data, err := mc.buf.takeSmallBuffer(pktLen)
	if err != nil {
		mc.cleanup()
		return err
	}

	binary.LittleEndian.PutUint32(data[4:], uint32(clientFlags))
	binary.LittleEndian.PutUint32(data[8:], uint32(maxPacketSize))
	data[12] = collationID
	for i := 13; i < 13+23; i++ {
		data[i] = 0
	}

	if useTLS {
		if err := mc.writePacket(append([]byte(nil), data[:4+4+4+1+23]...)); err != nil {
			return err
		}
		if err := mc.upgradeTLS(mc.cfg.TLS); err != nil {
			mc.cleanup()
			return err
		}
	}

	pos := 13 + 23
	pos += copy(data[pos:], mc.cfg.User)
	data[pos] = 0
	pos++

	data[pos] = byte(len(authResp))
	pos++
	pos += copy(data[pos:], authResp)

	if mc.cfg.DBName != "" {
		pos += copy(data[pos:], mc.cfg.DBName)
		data[pos] = 0
		pos++
	}

	pos += copy(data[pos:], plugin)
	data[pos] = 0
	pos++

	data[pos] = byte(len(mc.connector.encodedAttributes))
	pos++
	pos += copy(data[pos:], mc.connector.encodedAttributes)

	if err := mc.writePacket(data[:pos]); err != nil {
		return err
	}
	mc.flags = clientFlags
	return nil
}

// writeAuthSwitchPacket replies to an AuthSwitchRequest with the
// password hashed for the plugin the server asked for.
func (mc *Connection) writeAuthSwitchPacket(authData []byte) error {
	pktLen := 4 + len(authData)
	data, err := mc.buf.takeSmallBuffer(pktLen)
	if err != nil {
		return err
	}
	copy(data[4:], authData)
	return mc.writePacket(data)
}

func (mc *Connection) writeClearAuthPacket(password string) error {
	pktLen := 4 + len(password) + 1
	data, err := mc.buf.takeSmallBuffer(pktLen)
	if err != nil {
		return err
	}
	pos := copy(data[4:], password) + 4
	data[pos] = 0
	return mc.writePacket(data)
}

func (mc *Connection) writePublicKeyRequestPacket() error {
	data, err := mc.buf.takeSmallBuffer(4 + 1)
	if err != nil {
		return err
	}
	data[4] = 2 // request the server's RSA public key
	return mc.writePacket(data)
}

// writeCommandPacket sends a single command byte with no payload.
func (mc *Connection) writeCommandPacket(command byte) error {
	mc.sequence = 0
	data, err := mc.buf.takeSmallBuffer(4 + 1)
	if err != nil {
		return err
	}
	data[4] = command
	return mc.writePacket(data)
}

// writeCommandPacketStr sends a command byte followed by a raw string
// argument (used by COM_QUERY, COM_STMT_PREPARE, COM_INIT_DB, ...).
func (mc *Connection) writeCommandPacketStr(command byte, arg string) error {
	mc.sequence = 0
	pktLen := 1 + len(arg)
	data, err := mc.buf.takeBuffer(pktLen + 4)
	if err != nil {
		return err
	}
	data[4] = command
	copy(data[5:], arg)
	return mc.writePacket(data)
}

// writeCommandPacketUint32 sends a command byte followed by a
// little-endian uint32 argument (used by COM_STMT_CLOSE/RESET/FETCH).
func (mc *Connection) writeCommandPacketUint32(command byte, arg uint32) error {
	mc.sequence = 0
	data, err := mc.buf.takeSmallBuffer(4 + 1 + 4)
	if err != nil {
		return err
	}
	data[4] = command
	binary.LittleEndian.PutUint32(data[5:], arg)
	return mc.writePacket(data)
}

func (mc *Connection) writeChangeUserPacket(newCfg *Config) error {
	mc.sequence = 0
	authData, err := mc.genAuthResponse(nil, mc.session.authPlugin())
	if err != nil {
		return err
	}
	pktLen := 1 + len(newCfg.User) + 1 + 1 + len(authData) + len(newCfg.DBName) + 1 + 2
	data, err := mc.buf.takeBuffer(pktLen + 4)
	if err != nil {
		return err
	}
	pos := 4
	data[pos] = comChangeUser
	pos++
	pos += copy(data[pos:], newCfg.User)
	data[pos] = 0
	pos++
	data[pos] = byte(len(authData))
	pos++
	pos += copy(data[pos:], authData)
	pos += copy(data[pos:], newCfg.DBName)
	data[pos] = 0
	pos++
	return mc.writePacket(data[:pos])
}

// clearResult resets the accumulated affected-rows/insert-id lists
// before issuing a fresh command, returning mc for chaining against the
// readResultSetHeaderPacket/discardResults pair.
func (mc *Connection) clearResult() *Connection {
	mc.result.affectedRows = mc.result.affectedRows[:0]
	mc.result.insertIds = mc.result.insertIds[:0]
	return mc
}

// readResultOK reads a single OK/ERR packet, used by commands that never
// produce a result set (COM_PING, the implicit ack after COM_STMT_CLOSE).
func (mc *Connection) readResultOK() (int, error) {
	data, err := mc.readPacket()
	if err != nil {
		return 0, err
	}
	if data[0] == iOK {
		return 0, mc.handleOkPacket(data)
	}
	return 0, mc.handleErrorPacket(data)
}

// readResultSetHeaderPacket reads the first packet of a command's
// response, dispatching OK/ERR/LOCAL INFILE, or returning the column
// count for a pending result set.
func (mc *Connection) readResultSetHeaderPacket() (int, error) {
	data, err := mc.readPacket()
	if err != nil {
		return 0, err
	}

	switch data[0] {
	case iOK:
		return 0, mc.handleOkPacket(data)
	case iERR:
		return 0, mc.handleErrorPacket(data)
	case iLocalInFile:
		return 0, mc.handleInFileRequest(string(data[1:]))
	}

	n, _, m := readLengthEncodedInteger(data)
	if m != len(data) {
		return 0, ErrMalformPkt
	}
	return int(n), nil
}

// handleOkPacket parses an OK packet's affected-rows/insert-id/status
// and appends them to the command's accumulated result.
func (mc *Connection) handleOkPacket(data []byte) error {
	pos := 1

	affectedRows, _, n := readLengthEncodedInteger(data[pos:])
	pos += n
	insertID, _, m := readLengthEncodedInteger(data[pos:])
	pos += m

	if mc.flags&clientProtocol41 > 0 {
		mc.status = statusFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if len(data[pos:]) >= 2 {
			mc.warnings = binary.LittleEndian.Uint16(data[pos : pos+2])
		}
	}

	mc.result.affectedRows = append(mc.result.affectedRows, int64(affectedRows))
	mc.result.insertIds = append(mc.result.insertIds, int64(insertID))
	return nil
}

// discardResults consumes every remaining result set in a multi-result
// command (a CALL with multiple SELECTs, multi-statement batches) so the
// connection is left ready for the next command.
func (mc *Connection) discardResults() error {
	for mc.status&statusMoreResultsExists != 0 {
		resLen, err := mc.readResultSetHeaderPacket()
		if err != nil {
			return err
		}
		if resLen > 0 {
			if err := mc.readUntilEOF(); err != nil {
				return err
			}
			if err := mc.readUntilEOF(); err != nil {
				return err
			}
		}
	}
	return nil
}

// handleErrorPacket parses an ERR packet into a *MySQLError.
func (mc *Connection) handleErrorPacket(data []byte) error {
	if data[0] != iERR {
		return ErrMalformPkt
	}

	errno := binary.LittleEndian.Uint16(data[1:3])

	if errno == 1152 || errno == 1153 {
		mc.status &^= statusMoreResultsExists
	}

	pos := 3
	var sqlstate [5]byte
	if mc.flags&clientProtocol41 > 0 && len(data) > pos && data[pos] == '#' {
		copy(sqlstate[:], data[pos+1:pos+6])
		pos += 6
	}

	return &MySQLError{Number: errno, SQLSt: sqlstate, Message: string(data[pos:])}
}

// readUntilEOF drains packets until an EOF (or OK-as-EOF, for clients
// that negotiated CLIENT_DEPRECATE_EOF) marker is reached, used to skip
// a result set's row data.
func (mc *Connection) readUntilEOF() error {
	for {
		data, err := mc.readPacket()
		if err != nil {
			return err
		}
		switch data[0] {
		case iEOF:
			if len(data) == 5 {
				return mc.handleOkPacket(data)
			}
			return nil
		case iERR:
			return mc.handleErrorPacket(data)
		}
	}
}

// readStatus decodes a 2-byte little-endian status flag field, used
// when the EOF marker at the end of a column list carries a fresh
// status.
func readStatus(b []byte) statusFlag {
	return statusFlag(binary.LittleEndian.Uint16(b))
}
