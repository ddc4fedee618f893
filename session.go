package mysql

import "sync/atomic"

// SessionState is the observable state of a Connection's session state
// machine.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateHandshaking
	StateAuthenticating
	StateReady
	StateInQuery
	StateInStreaming
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateAuthenticating:
		return "Authenticating"
	case StateReady:
		return "Ready"
	case StateInQuery:
		return "InQuery"
	case StateInStreaming:
		return "InStreaming"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// sessionState is the mutable, atomically-updated holder for a
// Connection's SessionState plus the extra context an Authenticating
// state carries (plugin name / round), without forcing every reader to
// take a lock for the common case of just checking "is this closed".
type sessionState struct {
	state      atomic.Int32
	pluginName atomic.Value // string
	round      atomic.Int32
	streamStmt atomic.Uint32
}

func newSessionState() *sessionState {
	s := &sessionState{}
	s.state.Store(int32(StateConnecting))
	s.pluginName.Store("")
	return s
}

func (s *sessionState) set(st SessionState) {
	s.state.Store(int32(st))
}

func (s *sessionState) get() SessionState {
	return SessionState(s.state.Load())
}

func (s *sessionState) setAuthenticating(plugin string, round int) {
	s.pluginName.Store(plugin)
	s.round.Store(int32(round))
	s.set(StateAuthenticating)
}

func (s *sessionState) authPlugin() string {
	v, _ := s.pluginName.Load().(string)
	return v
}

func (s *sessionState) setStreaming(stmtID uint32) {
	s.streamStmt.Store(stmtID)
	s.set(StateInStreaming)
}

func (s *sessionState) streamingStmtID() uint32 {
	return s.streamStmt.Load()
}

// atomicErrorValue is a small helper for storing/loading an error value
// atomically, used to record a cancellation/cleanup error that concurrent
// readers of a Connection must observe without a data race (a generalized
// mc.canceled field, generalized beyond its original atomic.Value use).
type atomicErrorValue struct {
	v atomic.Value
}

type errorBox struct{ err error }

func (a *atomicErrorValue) Set(err error) {
	a.v.Store(errorBox{err})
}

func (a *atomicErrorValue) Value() error {
	b, _ := a.v.Load().(errorBox)
	return b.err
}
