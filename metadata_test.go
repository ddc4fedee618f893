package mysql

import "testing"

func TestStringOrEmpty(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{[]byte("hello"), "hello"},
		{"world", "world"},
		{42, "42"},
		{nil, "<nil>"},
	}
	for _, c := range cases {
		if got := stringOrEmpty(c.in); got != c.want {
			t.Errorf("stringOrEmpty(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{int64(7), 7},
		{uint64(9), 9},
		{"not a number", 0},
		{nil, 0},
	}
	for _, c := range cases {
		if got := toInt64(c.in); got != c.want {
			t.Errorf("toInt64(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMetadataDriverInfo(t *testing.T) {
	mc := &Connection{serverVersion: "8.0.33"}
	m := mc.Metadata()

	if got := m.DriverName(); got != driverName {
		t.Errorf("DriverName() = %q, want %q", got, driverName)
	}
	if got := m.DriverVersion(); got != driverVersion {
		t.Errorf("DriverVersion() = %q, want %q", got, driverVersion)
	}
	if got := m.ServerVersion(); got != "8.0.33" {
		t.Errorf("ServerVersion() = %q, want 8.0.33", got)
	}
}
