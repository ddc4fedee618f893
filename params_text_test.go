package mysql

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInterpolateParams(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		query string
		args  []any
		want  string
	}{
		{"SELECT ?", []any{nil}, "SELECT NULL"},
		{"SELECT ?", []any{true}, "SELECT 1"},
		{"SELECT ?", []any{false}, "SELECT 0"},
		{"SELECT ?", []any{42}, "SELECT 42"},
		{"SELECT ?", []any{"it's"}, `SELECT 'it\'s'`},
		{"SELECT ?, ?", []any{1, "a"}, "SELECT 1, 'a'"},
		{"SELECT ?", []any{decimal.RequireFromString("3.14")}, "SELECT 3.14"},
	}
	for _, c := range cases {
		got, err := interpolateParams(c.query, c.args, loc, defaultMaxAllowedPacket)
		if err != nil {
			t.Fatalf("interpolateParams(%q): %v", c.query, err)
		}
		if got != c.want {
			t.Errorf("interpolateParams(%q) = %q, want %q", c.query, got, c.want)
		}
	}
}

func TestInterpolateParamsCountMismatch(t *testing.T) {
	_, err := interpolateParams("SELECT ?, ?", []any{1}, time.UTC, defaultMaxAllowedPacket)
	if !errors.Is(err, ErrParamCount) {
		t.Fatalf("got %v, want ErrParamCount", err)
	}
}

func TestInterpolateParamsTooLarge(t *testing.T) {
	big := strings.Repeat("x", 100)
	_, err := interpolateParams("SELECT ?", []any{big}, time.UTC, 10)
	if !errors.Is(err, ErrPktTooLarge) {
		t.Fatalf("got %v, want ErrPktTooLarge", err)
	}
}

func TestEscapeString(t *testing.T) {
	cases := map[string]string{
		`it's`:     `it\'s`,
		"a\"b":     `a\"b`,
		"a\\b":     `a\\b`,
		"a\x00b":   `a\0b`,
		"a\nb":     `a\nb`,
		"a\rb":     `a\rb`,
		"plain":    "plain",
	}
	for in, want := range cases {
		if got := escapeString(in); got != want {
			t.Errorf("escapeString(%q) = %q, want %q", in, got, want)
		}
	}
}
