package mysql

import (
	"errors"
	"testing"
)

func TestSessionStateTransitions(t *testing.T) {
	s := newSessionState()
	if got := s.get(); got != StateConnecting {
		t.Fatalf("initial state = %v, want Connecting", got)
	}

	s.setAuthenticating("caching_sha2_password", 2)
	if got := s.get(); got != StateAuthenticating {
		t.Errorf("state = %v, want Authenticating", got)
	}
	if s.authPlugin() != "caching_sha2_password" {
		t.Errorf("authPlugin() = %q", s.authPlugin())
	}

	s.set(StateReady)
	if got := s.get(); got != StateReady {
		t.Errorf("state = %v, want Ready", got)
	}

	s.setStreaming(42)
	if got := s.get(); got != StateInStreaming {
		t.Errorf("state = %v, want InStreaming", got)
	}
	if s.streamingStmtID() != 42 {
		t.Errorf("streamingStmtID() = %d, want 42", s.streamingStmtID())
	}
}

func TestSessionStateString(t *testing.T) {
	if StateReady.String() != "Ready" {
		t.Errorf("StateReady.String() = %q", StateReady.String())
	}
	if SessionState(99).String() != "Unknown" {
		t.Errorf("unknown state String() = %q, want Unknown", SessionState(99).String())
	}
}

func TestAtomicErrorValue(t *testing.T) {
	var v atomicErrorValue
	if v.Value() != nil {
		t.Fatalf("zero value should be nil, got %v", v.Value())
	}
	want := errors.New("boom")
	v.Set(want)
	if got := v.Value(); !errors.Is(got, want) {
		t.Errorf("Value() = %v, want %v", got, want)
	}
}
