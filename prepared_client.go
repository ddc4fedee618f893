package mysql

import (
	"context"
	"strings"
)

// ClientPreparedStatement emulates a prepared statement by substituting
// '?' placeholders into literal SQL and sending it as an ordinary
// COM_QUERY, for servers or proxies that can't or shouldn't see
// COM_STMT_PREPARE traffic (a client-side alternative to it).
type ClientPreparedStatement struct {
	mc    *Connection
	query string
}

// PrepareClient "prepares" query without a server round trip; the
// query is revalidated and parameters interpolated on every Execute.
func (mc *Connection) PrepareClient(query string) *ClientPreparedStatement {
	return &ClientPreparedStatement{mc: mc, query: query}
}

// NumInput counts '?' placeholders in the literal query text. It is a
// rough count (it does not skip quoted strings or comments) used only
// for database/sql's best-effort argument count check.
func (s *ClientPreparedStatement) NumInput() int { return strings.Count(s.query, "?") }

func (s *ClientPreparedStatement) Execute(ctx context.Context, args ...any) (ExecResult, error) {
	return s.mc.Exec(ctx, s.query, args...)
}

func (s *ClientPreparedStatement) ExecuteQuery(ctx context.Context, args ...any) (*ResultSet, error) {
	return s.mc.Query(ctx, s.query, args...)
}

func (s *ClientPreparedStatement) Close() error { return nil }
