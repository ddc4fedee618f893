package mysql

import (
	"context"
	"crypto/tls"
	"database/sql/driver"
	"fmt"
	"io"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Connection is the native session handle: the implementation of
// the Session state machine plus a command loop on top
// of packet framing (C2) and transport (C3). It also implements enough
// of database/sql/driver's interfaces (via driver.go) to back a
// database/sql.DB when that interop is wanted.
type Connection struct {
	cfg       *Config
	connector *Connector

	netConn net.Conn // possibly a *tls.Conn after the TLS upgrade
	rawConn net.Conn // the pre-TLS socket, kept so Close always works

	buf      wireBuffer
	data     [4 + 4 + 1 + 4]byte // scratch for fixed-size command packets
	sequence byte

	flags            clientFlag
	status           statusFlag
	parseTime        bool
	maxAllowedPacket int
	writeTimeout     time.Duration

	session *sessionState

	serverVersion   string
	connectionID    uint32
	authSeed        []byte
	collation       string
	serverVariables map[string]string
	autocommit      bool
	isolation       string
	currentSchema   string
	readOnly        bool
	lastInsertID    int64
	warnings        uint16

	result mysqlResult

	stmtsMu sync.Mutex
	stmts   map[uint32]*ServerPreparedStatement

	cmdMu sync.Mutex // serializes commands issued on this connection

	readRes  chan readResult
	writeReq chan []byte
	writeRes chan writeResult
	closech  chan struct{}
	closed   atomic.Bool

	cancelErr atomicErrorValue
	chCtx    chan mysqlContext

	stats ConnectionStats
}

// mysqlResult accumulates affected-rows/last-insert-id across the chain
// of result sets a single command can produce (stored procedures with
// multiple SELECTs, multi-statement batches).
type mysqlResult struct {
	affectedRows []int64
	insertIds    []int64
}

type readResult struct {
	data []byte
	err  error
}

type writeResult struct {
	n   int
	err error
}

type mysqlContext struct {
	ctx  context.Context
	done chan struct{}
}

// ConnectionStats holds the plain counters exposed by
// Connection.Stats() / the optional Prometheus collector in stats.go.
type ConnectionStats struct {
	BytesSent     uint64
	BytesReceived uint64
	RoundTrips    uint64
	AuthRetries   uint64
}

// Connect dials, performs the handshake and authentication, and returns
// a ready Connection. ctx governs only the dial and handshake; use
// QueryContext/ExecContext style calls (driver.go) or the context-aware
// methods below for per-command cancellation once connected.
func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	connector, err := NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx)
}

// Connect dials using the Connector's Config.
func (c *Connector) Connect(ctx context.Context) (*Connection, error) {
	cfg := c.cfg
	mc := &Connection{
		cfg:              cfg,
		connector:        c,
		maxAllowedPacket: cfg.MaxAllowedPacket,
		parseTime:        cfg.ParseTime,
		writeTimeout:     cfg.WriteTimeout,
		session:          newSessionState(),
		serverVariables:  map[string]string{},
		stmts:            map[uint32]*ServerPreparedStatement{},
		autocommit:       true,
		closech:          make(chan struct{}),
		readRes:          make(chan readResult),
		writeReq:         make(chan []byte),
		writeRes:         make(chan writeResult),
	}

	var d net.Dialer
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	nc, err := d.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return nil, err
	}
	applySocketOptions(nc, cfg.SocketOptions)
	mc.rawConn = nc
	mc.netConn = nc

	mc.startLoops()
	mc.buf = newWireBuffer(newChanReader(mc))
	mc.buf.timeout = cfg.ReadTimeout

	mc.session.set(StateHandshaking)
	if err := mc.handshake(); err != nil {
		mc.Close()
		return nil, err
	}

	mc.session.set(StateReady)
	mc.startWatcher()
	return mc, nil
}

func applySocketOptions(nc net.Conn, opts []SocketOption) {
	tc, ok := nc.(*net.TCPConn)
	if !ok {
		return
	}
	for _, o := range opts {
		switch o.Name {
		case "TCP_NODELAY":
			_ = tc.SetNoDelay(o.Value != 0)
		case "SO_KEEPALIVE":
			_ = tc.SetKeepAlive(o.Value != 0)
		case "SO_RCVBUF":
			_ = tc.SetReadBuffer(o.Value)
		case "SO_SNDBUF":
			_ = tc.SetWriteBuffer(o.Value)
		}
	}
}

// chanReader adapts the connection's background readLoop into an
// io.Reader consumable by wireBuffer, so that a blocked Read can be
// cancelled by closing mc.closech without needing SetReadDeadline
// tricks on every call.
type chanReader struct {
	mc      *Connection
	pending []byte
}

func newChanReader(mc *Connection) *chanReader {
	return &chanReader{mc: mc}
}

func (r *chanReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		select {
		case res := <-r.mc.readRes:
			if res.err != nil {
				return 0, res.err
			}
			r.pending = res.data
		case <-r.mc.closech:
			if err := r.mc.cancelErr.Value(); err != nil {
				return 0, err
			}
			return 0, ErrInvalidConn
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	atomic.AddUint64(&r.mc.stats.BytesReceived, uint64(n))
	return n, nil
}

func (mc *Connection) startLoops() {
	go mc.readLoop()
	go mc.writeLoop()
}

func (mc *Connection) readLoop() {
	for {
		data := make([]byte, 4096)
		n, err := mc.netConn.Read(data)
		select {
		case mc.readRes <- readResult{data[:n], err}:
		case <-mc.closech:
			return
		}
		if err != nil {
			return
		}
	}
}

func (mc *Connection) writeLoop() {
	for {
		var data []byte
		select {
		case data = <-mc.writeReq:
		case <-mc.closech:
			return
		}

		n, err := mc.writeSync(data)

		select {
		case mc.writeRes <- writeResult{n, err}:
		case <-mc.closech:
			return
		}
	}
}

func (mc *Connection) writeSync(data []byte) (int, error) {
	if mc.writeTimeout > 0 {
		if err := mc.netConn.SetWriteDeadline(time.Now().Add(mc.writeTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := mc.netConn.Write(data)
	if n > 0 {
		atomic.AddUint64(&mc.stats.BytesSent, uint64(n))
	}
	return n, err
}

// upgradeTLS swaps mc.netConn for a TLS client connection over the same
// socket, performed mid-handshake exactly where the protocol requires
// (after the initial handshake, before HandshakeResponse41), grounded on
// the reference driver's inline TLS-upgrade block in writeHandshakeResponsePacket.
func (mc *Connection) upgradeTLS(cfg *tls.Config) error {
	tlsConn := tls.Client(mc.netConn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	mc.netConn = tlsConn
	return nil
}

func (mc *Connection) isClosed() bool {
	return mc.closed.Load()
}

func (mc *Connection) isBroken() bool {
	return mc.isClosed() || mc.session.get() == StateClosed
}

// Close terminates the connection. It is idempotent.
func (mc *Connection) Close() error {
	if !mc.closed.CompareAndSwap(false, true) {
		return nil
	}
	mc.session.set(StateClosed)
	close(mc.closech)
	if mc.chCtx != nil {
		close(mc.chCtx)
	}
	if mc.netConn != nil {
		return mc.netConn.Close()
	}
	return nil
}

// cleanup closes the connection without returning an error, used from
// deep inside packet handling where a partial write/read means the
// session can no longer be trusted.
func (mc *Connection) cleanup() {
	_ = mc.Close()
}

// finish marks the end of a command, returning the session to Ready.
func (mc *Connection) finish() {
	if mc.session.get() != StateClosed {
		mc.session.set(StateReady)
	}
}

func (mc *Connection) canceled() error {
	return mc.cancelErr.Value()
}

// State reports the Connection's current observable SessionState.
func (mc *Connection) State() SessionState { return mc.session.get() }

// Stats returns a snapshot of the connection's transport counters.
func (mc *Connection) Stats() ConnectionStats {
	return ConnectionStats{
		BytesSent:     atomic.LoadUint64(&mc.stats.BytesSent),
		BytesReceived: atomic.LoadUint64(&mc.stats.BytesReceived),
		RoundTrips:    atomic.LoadUint64(&mc.stats.RoundTrips),
		AuthRetries:   atomic.LoadUint64(&mc.stats.AuthRetries),
	}
}

// ServerVersion returns the version string the server announced during
// the handshake.
func (mc *Connection) ServerVersion() string { return mc.serverVersion }

// ConnectionID returns the server-assigned connection id, used by
// CancelQuery's KILL QUERY.
func (mc *Connection) ConnectionID() uint32 { return mc.connectionID }

// Schema returns the current default schema, or "" if none is selected.
func (mc *Connection) Schema() string { return mc.currentSchema }

// exec runs a statement expecting no result set rows, discarding any it
// gets; used internally by the transaction/savepoint controller and the
// config setters that work via literal SQL (SET autocommit=..., etc.)
func (mc *Connection) exec(query string) error {
	if err := mc.writeCommandPacketStr(comQuery, query); err != nil {
		return err
	}
	oh := mc.clearResult()
	resLen, err := oh.readResultSetHeaderPacket()
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
	return oh.discardResults()
}

// watchCancel registers ctx with the connection's cancellation watcher
// so that a blocked network operation is aborted if ctx is done before
// the command finishes. Grounded on the reference driver's context-aware cancellation.
func (mc *Connection) watchCancel(ctx context.Context) (chan<- struct{}, error) {
	select {
	default:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if mc.chCtx == nil {
		return make(chan struct{}), nil
	}

	done := make(chan struct{})
	chCtx := mysqlContext{ctx: ctx, done: done}
	select {
	default:
		mc.cfg.Logger.Print(ErrInvalidConn)
		return nil, driver.ErrBadConn
	case mc.chCtx <- chCtx:
	}
	return done, nil
}

func (mc *Connection) startWatcher() {
	chCtx := make(chan mysqlContext, runtime.GOMAXPROCS(0))
	mc.chCtx = chCtx
	go func() {
		for ctx := range chCtx {
			select {
			case <-ctx.ctx.Done():
				mc.cancelErr.Set(ctx.ctx.Err())
				mc.cleanup()
			case <-ctx.done:
			case <-mc.closech:
				return
			}
		}
	}()
}

// Ping verifies the connection is alive by issuing COM_PING.
func (mc *Connection) Ping(ctx context.Context) error {
	if mc.isClosed() {
		return ErrInvalidConn
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	if err := mc.writeCommandPacket(comPing); err != nil {
		return err
	}
	_, err = mc.readResultOK()
	return err
}

// ChangeUser re-authenticates the socket as a different user/schema via
// COM_CHANGE_USER, resetting session state and discarding
// all open prepared statements on success.
func (mc *Connection) ChangeUser(ctx context.Context, user, password, schema string) error {
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	newCfg := mc.cfg.With(WithUser(user), WithPassword(password), WithDatabase(schema))
	if err := mc.writeChangeUserPacket(newCfg); err != nil {
		return err
	}
	if err := mc.handleAuthResult(newCfg); err != nil {
		return err
	}
	mc.cfg = newCfg
	mc.currentSchema = schema
	mc.resetStatementTable()
	return nil
}

// ResetServerState reissues COM_RESET_CONNECTION-equivalent behavior by
// resetting session variables (autocommit back to on, isolation back to
// server default) and discarding prepared statement state, without
// tearing down the socket. MySQL versions without COM_RESET_CONNECTION
// fall back to an equivalent SQL sequence, matching how the pack's
// connection pools recycle sessions.
func (mc *Connection) ResetServerState(ctx context.Context) error {
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	if err := mc.exec("SET autocommit=1"); err != nil {
		return err
	}
	mc.autocommit = true
	mc.resetStatementTable()
	return nil
}

func (mc *Connection) resetStatementTable() {
	mc.stmtsMu.Lock()
	defer mc.stmtsMu.Unlock()
	mc.stmts = map[uint32]*ServerPreparedStatement{}
}

// CancelQuery opens a fresh connection and issues KILL QUERY against
// mc's connection id, per the driver's cancellation model. The secondary
// connection is closed before returning.
func (mc *Connection) CancelQuery(ctx context.Context) error {
	killer, err := Connect(ctx, mc.cfg)
	if err != nil {
		return err
	}
	defer killer.Close()
	return killer.exec(fmt.Sprintf("KILL QUERY %d", mc.ConnectionID()))
}

func (mc *Connection) handleInFileRequest(_ string) error {
	// LOCAL INFILE is not supported; reply with an empty
	// packet so the server considers the transfer complete, then
	// surface the failure to the caller.
	data, err := mc.buf.takeSmallBuffer(4)
	if err == nil {
		_ = mc.writePacket(data[:4])
	}
	if err := mc.readResultOK(); err != nil {
		return err
	}
	return &InvalidArgumentError{Msg: "LOCAL INFILE is not supported by this driver"}
}

var _ io.Closer = (*Connection)(nil)
