package mysql

import (
	"context"
	"strings"
)

// Query runs sql as a text-protocol COM_QUERY, substituting args as
// literals client-side when cfg.InterpolateParams is set
// and returns the resulting ResultSet. With no args and
// InterpolateParams unset, sql is sent verbatim.
func (mc *Connection) Query(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return nil, err
	}
	defer close(done)

	mc.cmdMu.Lock()
	defer mc.cmdMu.Unlock()

	if len(args) > 0 {
		sql, err = interpolateParams(sql, args, mc.cfg.Loc, mc.maxAllowedPacket)
		if err != nil {
			return nil, err
		}
	}

	mc.session.set(StateInQuery)
	defer mc.finish()

	if err := mc.writeCommandPacketStr(comQuery, sql); err != nil {
		return nil, err
	}

	resLen, err := mc.clearResult().readResultSetHeaderPacket()
	if err != nil {
		return nil, err
	}
	if resLen == 0 {
		return &ResultSet{mc: mc, rs: resultSet{done: true}}, nil
	}

	rs := &ResultSet{mc: mc}
	rs.rs.columns, err = mc.readColumns(resLen)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Exec runs sql as a text-protocol command expected not to return rows,
// returning the accumulated affected-rows/last-insert-id of every
// statement a multi-statement or CALL command produced.
func (mc *Connection) Exec(ctx context.Context, sql string, args ...any) (ExecResult, error) {
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	defer close(done)

	mc.cmdMu.Lock()
	defer mc.cmdMu.Unlock()

	if err := mc.guardReadOnly(sql); err != nil {
		return ExecResult{}, err
	}

	if len(args) > 0 {
		sql, err = interpolateParams(sql, args, mc.cfg.Loc, mc.maxAllowedPacket)
		if err != nil {
			return ExecResult{}, err
		}
	}

	mc.session.set(StateInQuery)
	defer mc.finish()

	if err := mc.writeCommandPacketStr(comQuery, sql); err != nil {
		return ExecResult{}, err
	}

	resLen, err := mc.clearResult().readResultSetHeaderPacket()
	if err != nil {
		return ExecResult{}, err
	}
	if resLen > 0 {
		if err := mc.readUntilEOF(); err != nil {
			return ExecResult{}, err
		}
		if err := mc.readUntilEOF(); err != nil {
			return ExecResult{}, err
		}
	}
	if err := mc.discardResults(); err != nil {
		return ExecResult{}, err
	}

	return mc.lastExecResult(), nil
}

// ExecResult reports the outcome of a command that does not return rows,
// the native equivalent of database/sql.Result.
type ExecResult struct {
	LastInsertID int64
	RowsAffected int64
}

func (mc *Connection) lastExecResult() ExecResult {
	var r ExecResult
	if n := len(mc.result.affectedRows); n > 0 {
		r.RowsAffected = mc.result.affectedRows[n-1]
	}
	if n := len(mc.result.insertIds); n > 0 {
		r.LastInsertID = mc.result.insertIds[n-1]
	}
	return r
}

// UseDatabase issues COM_INIT_DB to change the connection's default
// schema.
func (mc *Connection) UseDatabase(ctx context.Context, name string) error {
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	if err := mc.writeCommandPacketStr(comInitDB, name); err != nil {
		return err
	}
	if _, err := mc.readResultOK(); err != nil {
		return err
	}
	mc.currentSchema = name
	return nil
}

// isDMLKeyword reports whether sql's leading keyword is a
// data-modification statement, used by the read-only transaction guard.
func isDMLKeyword(sql string) bool {
	s := strings.TrimSpace(strings.ToUpper(sql))
	for _, kw := range []string{"INSERT", "UPDATE", "DELETE", "REPLACE"} {
		if strings.HasPrefix(s, kw) {
			return true
		}
	}
	return false
}
