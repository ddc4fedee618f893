package mysql

import "testing"

func TestColumnTypeDatabaseTypeName(t *testing.T) {
	cases := map[fieldType]string{
		fieldTypeTiny:       "TINYINT",
		fieldTypeLong:       "INT",
		fieldTypeLongLong:   "BIGINT",
		fieldTypeVarString:  "VARCHAR",
		fieldTypeNewDecimal: "DECIMAL",
		fieldTypeDateTime:   "DATETIME",
		fieldTypeJSON:       "JSON",
		fieldTypeBLOB:       "BLOB",
	}
	for ft, want := range cases {
		ct := ColumnType{Type: ft}
		if got := ct.DatabaseTypeName(); got != want {
			t.Errorf("DatabaseTypeName(%v) = %q, want %q", ft, got, want)
		}
	}
}

func TestResultSetColumnsWithAlias(t *testing.T) {
	rs := &ResultSet{
		mc: &Connection{cfg: NewConfig(WithHost("x"))},
		rs: resultSet{columns: []columnDef{
			{table: "users", name: "id"},
			{table: "", name: "total"},
		}},
	}
	names := rs.Columns()
	if names[0] != "id" || names[1] != "total" {
		t.Errorf("unaliased Columns() = %v", names)
	}

	rs2 := &ResultSet{
		mc: &Connection{cfg: NewConfig(WithHost("x")).With(func(c *Config) { c.ColumnsWithAlias = true })},
		rs: resultSet{columns: []columnDef{{table: "users", name: "id"}}},
	}
	if got := rs2.Columns()[0]; got != "users.id" {
		t.Errorf("aliased Columns()[0] = %q, want users.id", got)
	}
}
