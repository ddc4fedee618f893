package mysql

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Metadata exposes a DatabaseMetaData-style introspection surface,
// backed by queries against information_schema rather than any
// dedicated wire command.
type Metadata struct {
	mc *Connection
}

// Metadata returns the introspection surface for mc.
func (mc *Connection) Metadata() *Metadata { return &Metadata{mc: mc} }

func (m *Metadata) DriverName() string    { return driverName }
func (m *Metadata) DriverVersion() string { return driverVersion }
func (m *Metadata) ServerVersion() string { return m.mc.serverVersion }

// TableInfo is one row of Metadata.Tables.
type TableInfo struct {
	Catalog string
	Schema  string
	Name    string
	Type    string
}

// Tables lists the tables visible in schema (or the current schema if
// empty), honoring Config.DatabaseTerm for which information_schema
// column backs "catalog" versus "schema" in the result.
func (m *Metadata) Tables(ctx context.Context, schema, pattern string) ([]TableInfo, error) {
	if schema == "" {
		schema = m.mc.currentSchema
	}
	if pattern == "" {
		pattern = "%"
	}
	rs, err := m.mc.Query(ctx,
		"SELECT TABLE_CATALOG, TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE "+
			"FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME LIKE ?",
		schema, pattern)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []TableInfo
	dest := make([]any, 4)
	for {
		if err := rs.Next(dest); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, TableInfo{
			Catalog: stringOrEmpty(dest[0]),
			Schema:  stringOrEmpty(dest[1]),
			Name:    stringOrEmpty(dest[2]),
			Type:    stringOrEmpty(dest[3]),
		})
	}
}

// ColumnInfo is one row of Metadata.Columns.
type ColumnInfo struct {
	Name       string
	DataType   string
	Nullable   bool
	Default    *string
	OrdinalPos int
}

// Columns lists the columns of table in schema.
func (m *Metadata) Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	if schema == "" {
		schema = m.mc.currentSchema
	}
	rs, err := m.mc.Query(ctx,
		"SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, ORDINAL_POSITION "+
			"FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? "+
			"ORDER BY ORDINAL_POSITION",
		schema, table)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []ColumnInfo
	dest := make([]any, 5)
	for {
		if err := rs.Next(dest); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		var def *string
		if s, ok := dest[3].([]byte); ok {
			str := string(s)
			def = &str
		}
		out = append(out, ColumnInfo{
			Name:       stringOrEmpty(dest[0]),
			DataType:   stringOrEmpty(dest[1]),
			Nullable:   stringOrEmpty(dest[2]) == "YES",
			Default:    def,
			OrdinalPos: int(toInt64(dest[4])),
		})
	}
}

func stringOrEmpty(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case uint64:
		return int64(t)
	default:
		return 0
	}
}
