package mysql

import "context"

// Statement is a JDBC-style java.sql.Statement: it runs raw SQL text
// directly rather than a prepared placeholder template, and its
// ResultSetType/ResultSetConcurrency govern whether Query's result is
// forward-only (streamed) or scrollable (buffered up front).
type Statement struct {
	mc          *Connection
	rsType      ResultSetType
	concurrency ResultSetConcurrency
	batch       []string
}

// CreateStatement builds a Statement whose Query results honor rsType:
// TypeForwardOnly streams rows off the wire as usual, while
// TypeScrollInsensitive/TypeScrollSensitive buffer every row so the
// returned ResultSet supports Absolute/Relative/Previous/First/Last.
func (mc *Connection) CreateStatement(rsType ResultSetType, concurrency ResultSetConcurrency) *Statement {
	return &Statement{mc: mc, rsType: rsType, concurrency: concurrency}
}

// Query runs sql, buffering the full result set up front when s was
// created with a scrollable ResultSetType.
func (s *Statement) Query(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	rs, err := s.mc.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	rs.rsType = s.rsType
	rs.concurrency = s.concurrency
	if s.rsType != TypeForwardOnly {
		if err := rs.bufferAll(); err != nil {
			rs.Close()
			return nil, err
		}
	}
	return rs, nil
}

// Exec runs sql expecting no result set rows.
func (s *Statement) Exec(ctx context.Context, sql string, args ...any) (ExecResult, error) {
	return s.mc.Exec(ctx, sql, args...)
}

// AddBatch queues a raw SQL string for later execution by ExecuteBatch,
// the generic counterpart to BatchStatement (batch.go) for callers
// batching heterogeneous DDL/DML text instead of one prepared
// statement's positional parameter sets.
func (s *Statement) AddBatch(sql string) {
	s.batch = append(s.batch, sql)
}

// ExecuteBatch runs every queued statement in order. On the first
// failure it returns a *BatchUpdateException carrying the RowsAffected
// counts of every statement that succeeded before the failure.
func (s *Statement) ExecuteBatch(ctx context.Context) ([]int64, error) {
	counts := make([]int64, 0, len(s.batch))
	for _, sql := range s.batch {
		res, err := s.mc.Exec(ctx, sql)
		if err != nil {
			return counts, &BatchUpdateException{UpdateCounts: counts, Err: err}
		}
		counts = append(counts, res.RowsAffected)
	}
	s.batch = s.batch[:0]
	return counts, nil
}

// ServerPreparedStatement is a statement prepared server-side via
// COM_STMT_PREPARE and executed via the binary protocol
// §4.5). It is the default PreparedStatement implementation; set
// Config.UseServerPrepStmts=false to fall back to client-side literal
// substitution (prepared_client.go) for servers/proxies that don't
// support binary prepared statements.
type ServerPreparedStatement struct {
	mc          *Connection
	id          uint32
	query       string
	paramCount  uint16
	columnCount uint16
	fetchSize   uint32 // 0 means defaultFetchSize; set via SetFetchSize
}

// SetFetchSize controls how many rows each COM_STMT_FETCH requests when
// this statement's ExecuteQuery opens a server-side cursor
// (Config.UseCursorFetch). A size of 0 restores the default.
func (s *ServerPreparedStatement) SetFetchSize(n int) {
	if n < 0 {
		n = 0
	}
	s.fetchSize = uint32(n)
}

// FetchSize returns the fetch size currently in effect, substituting
// defaultFetchSize when none has been set.
func (s *ServerPreparedStatement) FetchSize() uint32 {
	if s.fetchSize == 0 {
		return defaultFetchSize
	}
	return s.fetchSize
}

// Prepare sends COM_STMT_PREPARE for query and registers the resulting
// statement on mc so it can be reused across executions and reset on
// ChangeUser/ResetServerState.
func (mc *Connection) Prepare(ctx context.Context, query string) (*ServerPreparedStatement, error) {
	if !mc.cfg.UseServerPrepStmts {
		return nil, &InvalidArgumentError{Msg: "UseServerPrepStmts is disabled; use PrepareClient instead"}
	}

	done, err := mc.watchCancel(ctx)
	if err != nil {
		return nil, err
	}
	defer close(done)

	if err := mc.writeStmtPreparePacket(query); err != nil {
		return nil, err
	}
	res, err := mc.readStmtPrepareResultPacket()
	if err != nil {
		return nil, err
	}

	stmt := &ServerPreparedStatement{
		mc:          mc,
		id:          res.id,
		query:       query,
		paramCount:  res.paramCount,
		columnCount: res.columnCount,
	}

	mc.stmtsMu.Lock()
	mc.stmts[stmt.id] = stmt
	mc.stmtsMu.Unlock()
	return stmt, nil
}

// NumInput returns the number of '?' placeholders the server parsed out
// of the prepared query.
func (s *ServerPreparedStatement) NumInput() int { return int(s.paramCount) }

// Close sends COM_STMT_CLOSE and forgets the statement.
func (s *ServerPreparedStatement) Close() error {
	mc := s.mc
	if mc == nil || mc.isBroken() {
		return nil
	}
	mc.stmtsMu.Lock()
	delete(mc.stmts, s.id)
	mc.stmtsMu.Unlock()
	return mc.writeStmtClosePacket(s.id)
}

// Reset sends COM_STMT_RESET, discarding any buffered long-data
// parameters and closing any cursor this statement opened.
func (s *ServerPreparedStatement) Reset(ctx context.Context) error {
	done, err := s.mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)
	return s.mc.writeStmtResetPacket(s.id)
}

// Execute runs the statement expecting no result set rows.
func (s *ServerPreparedStatement) Execute(ctx context.Context, args ...any) (ExecResult, error) {
	mc := s.mc
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	defer close(done)

	mc.cmdMu.Lock()
	defer mc.cmdMu.Unlock()

	mc.session.set(StateInQuery)
	defer mc.finish()

	if err := s.writeExecutePacket(args, cursorTypeNoCursor); err != nil {
		return ExecResult{}, err
	}

	resLen, err := mc.clearResult().readResultSetHeaderPacket()
	if err != nil {
		return ExecResult{}, err
	}
	if resLen > 0 {
		rs := &ResultSet{mc: mc, binary: true}
		if rs.rs.columns, err = mc.readColumns(resLen); err != nil {
			return ExecResult{}, err
		}
		if err := rs.Close(); err != nil {
			return ExecResult{}, err
		}
	}
	return mc.lastExecResult(), nil
}

// ExecuteQuery runs the statement expecting a result set, optionally
// opening a server-side cursor (COM_STMT_FETCH streaming, cursor_fetch.go)
// when Config.UseCursorFetch is set.
func (s *ServerPreparedStatement) ExecuteQuery(ctx context.Context, args ...any) (*ResultSet, error) {
	mc := s.mc
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return nil, err
	}
	defer close(done)

	mc.cmdMu.Lock()
	defer mc.cmdMu.Unlock()

	cursorType := byte(cursorTypeNoCursor)
	if mc.cfg.UseCursorFetch {
		cursorType = cursorTypeReadOnly
	}

	mc.session.set(StateInQuery)
	if cursorType == cursorTypeNoCursor {
		defer mc.finish()
	}

	if err := s.writeExecutePacket(args, cursorType); err != nil {
		return nil, err
	}

	resLen, err := mc.clearResult().readResultSetHeaderPacket()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{mc: mc, binary: true}
	if resLen == 0 {
		rs.rs.done = true
		return rs, nil
	}
	if rs.rs.columns, err = mc.readColumns(resLen); err != nil {
		return nil, err
	}

	if cursorType == cursorTypeReadOnly {
		rs.stmt = s
		rs.fetchSize = s.FetchSize()
		mc.session.setStreaming(s.id)
	}
	return rs, nil
}
