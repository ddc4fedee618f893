package mysql

import "testing"

func TestIsolationLevelSQL(t *testing.T) {
	cases := map[IsolationLevel]string{
		LevelDefault:         "",
		LevelReadUncommitted: "READ UNCOMMITTED",
		LevelReadCommitted:   "READ COMMITTED",
		LevelRepeatableRead:  "REPEATABLE READ",
		LevelSerializable:    "SERIALIZABLE",
	}
	for level, want := range cases {
		if got := level.sql(); got != want {
			t.Errorf("IsolationLevel(%d).sql() = %q, want %q", level, got, want)
		}
	}
}

func TestIsDMLKeyword(t *testing.T) {
	cases := map[string]bool{
		"INSERT INTO t VALUES (1)": true,
		"  update t set x=1":       true,
		"DELETE FROM t":            true,
		"replace into t values()":  true,
		"SELECT * FROM t":          false,
		"SHOW TABLES":              false,
		"":                         false,
	}
	for sql, want := range cases {
		if got := isDMLKeyword(sql); got != want {
			t.Errorf("isDMLKeyword(%q) = %v, want %v", sql, got, want)
		}
	}
}

func TestGuardReadOnlyBlocksDML(t *testing.T) {
	mc := &Connection{cfg: NewConfig(WithRejectReadOnly(true)), readOnly: true}
	if err := mc.guardReadOnly("INSERT INTO t VALUES (1)"); err == nil {
		t.Fatal("expected error for DML on read-only connection")
	}
	if err := mc.guardReadOnly("SELECT 1"); err != nil {
		t.Errorf("unexpected error for SELECT: %v", err)
	}

	mc.readOnly = false
	if err := mc.guardReadOnly("INSERT INTO t VALUES (1)"); err != nil {
		t.Errorf("unexpected error once readOnly is false: %v", err)
	}
}
