package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
)

// Driver adapts the native Connector/Connection/ResultSet/Transaction
// API to database/sql/driver, for applications that want to keep using
// database/sql.DB instead of this package's native entry points.
// Grounded on the reference driver's context-aware connection methods,
// reworked as a thin wrapper (driverConn) over the native Connection
// rather than as native methods themselves, since several
// database/sql/driver method names (Prepare, Begin) collide with the
// native API's own names and signatures.
type Driver struct{}

func init() {
	sql.Register("mysql", &Driver{})
}

func (d *Driver) Open(dsn string) (driver.Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return connector.OpenConnector().Connect(context.Background())
}

// OpenConnector implements driver.DriverContext so database/sql can
// cache the parsed Config instead of re-parsing the DSN on every dial.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return connector.OpenConnector(), nil
}

// OpenConnector wraps c to satisfy driver.Connector without adding
// database/sql/driver methods to the native Connector type itself.
func (c *Connector) OpenConnector() driver.Connector { return driverConnector{c} }

type driverConnector struct{ native *Connector }

func (c driverConnector) Connect(ctx context.Context) (driver.Conn, error) {
	mc, err := c.native.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return driverConn{mc}, nil
}

func (c driverConnector) Driver() driver.Driver { return &Driver{} }

// driverConn wraps a native Connection to satisfy driver.Conn and its
// optional context-aware extension interfaces.
type driverConn struct{ mc *Connection }

func (c driverConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c driverConn) Close() error { return c.mc.Close() }

func (c driverConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c driverConn) Ping(ctx context.Context) error {
	if c.mc.isClosed() {
		return driver.ErrBadConn
	}
	return c.mc.Ping(ctx)
}

// IsValid implements driver.Validator.
func (c driverConn) IsValid() bool { return !c.mc.isBroken() }

// PrepareContext implements driver.ConnPrepareContext.
func (c driverConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if c.mc.cfg.UseServerPrepStmts {
		s, err := c.mc.Prepare(ctx, query)
		if err != nil {
			return nil, err
		}
		return stmtAdapter{inner: s}, nil
	}
	return stmtAdapter{inner: c.mc.PrepareClient(query)}, nil
}

// QueryContext implements driver.QueryerContext, bypassing
// PrepareContext for one-shot text-protocol queries.
func (c driverConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	vals, err := namedValueToAny(args)
	if err != nil {
		return nil, err
	}
	rs, err := c.mc.Query(ctx, query, vals...)
	if err != nil {
		return nil, err
	}
	return rowsAdapter{rs}, nil
}

// ExecContext implements driver.ExecerContext.
func (c driverConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	vals, err := namedValueToAny(args)
	if err != nil {
		return nil, err
	}
	res, err := c.mc.Exec(ctx, query, vals...)
	if err != nil {
		return nil, err
	}
	return execResultAdapter{res}, nil
}

// BeginTx implements driver.ConnBeginTx.
func (c driverConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	tx, err := c.mc.Begin(ctx, BeginOptions{
		Isolation: IsolationLevel(opts.Isolation),
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	return txAdapter{tx}, nil
}

// ResetSession implements driver.SessionResetter, used by
// database/sql's connection pool before handing a pooled *Connection
// back out.
func (c driverConn) ResetSession(ctx context.Context) error {
	if c.mc.isBroken() {
		return driver.ErrBadConn
	}
	return c.mc.ResetServerState(ctx)
}

var (
	_ driver.Conn              = driverConn{}
	_ driver.Pinger            = driverConn{}
	_ driver.Validator         = driverConn{}
	_ driver.ConnPrepareContext = driverConn{}
	_ driver.QueryerContext    = driverConn{}
	_ driver.ExecerContext     = driverConn{}
	_ driver.ConnBeginTx       = driverConn{}
	_ driver.SessionResetter   = driverConn{}
)

// stmtAdapter implements driver.Stmt/StmtExecContext/StmtQueryContext
// over either a ServerPreparedStatement or a ClientPreparedStatement.
type stmtAdapter struct {
	inner interface {
		NumInput() int
		Close() error
	}
}

func (s stmtAdapter) Close() error { return s.inner.Close() }

func (s stmtAdapter) NumInput() int { return s.inner.NumInput() }

func (s stmtAdapter) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamed(args))
}

func (s stmtAdapter) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamed(args))
}

func (s stmtAdapter) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	vals, err := namedValueToAny(args)
	if err != nil {
		return nil, err
	}
	var res ExecResult
	switch st := s.inner.(type) {
	case *ServerPreparedStatement:
		res, err = st.Execute(ctx, vals...)
	case *ClientPreparedStatement:
		res, err = st.Execute(ctx, vals...)
	}
	if err != nil {
		return nil, err
	}
	return execResultAdapter{res}, nil
}

func (s stmtAdapter) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	vals, err := namedValueToAny(args)
	if err != nil {
		return nil, err
	}
	var rs *ResultSet
	switch st := s.inner.(type) {
	case *ServerPreparedStatement:
		rs, err = st.ExecuteQuery(ctx, vals...)
	case *ClientPreparedStatement:
		rs, err = st.ExecuteQuery(ctx, vals...)
	}
	if err != nil {
		return nil, err
	}
	return rowsAdapter{rs}, nil
}

var (
	_ driver.Stmt             = stmtAdapter{}
	_ driver.StmtExecContext  = stmtAdapter{}
	_ driver.StmtQueryContext = stmtAdapter{}
)

type txAdapter struct{ tx *Transaction }

func (t txAdapter) Commit() error   { return t.tx.Commit(context.Background()) }
func (t txAdapter) Rollback() error { return t.tx.Rollback(context.Background()) }

type execResultAdapter struct{ res ExecResult }

func (r execResultAdapter) LastInsertId() (int64, error) { return r.res.LastInsertID, nil }
func (r execResultAdapter) RowsAffected() (int64, error) { return r.res.RowsAffected, nil }

// rowsAdapter implements driver.Rows over a native ResultSet.
type rowsAdapter struct{ rs *ResultSet }

func (r rowsAdapter) Columns() []string { return r.rs.Columns() }
func (r rowsAdapter) Close() error      { return r.rs.Close() }

func (r rowsAdapter) Next(dest []driver.Value) error {
	vals := make([]any, len(dest))
	if err := r.rs.Next(vals); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return err
	}
	for i, v := range vals {
		dest[i] = driver.Value(v)
	}
	return nil
}

func (r rowsAdapter) HasNextResultSet() bool { return r.rs.HasNextResultSet() }
func (r rowsAdapter) NextResultSet() error   { return r.rs.NextResultSet() }

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

func namedValueToAny(named []driver.NamedValue) ([]any, error) {
	out := make([]any, len(named))
	for i, p := range named {
		if p.Name != "" {
			return nil, errors.New("mysql: driver does not support named parameters")
		}
		out[i] = p.Value
	}
	return out, nil
}
