package mysql

import (
	"context"
	"fmt"
	"strings"
)

// SQLType names the JDBC-style type tag passed to RegisterOutParameter.
// GetOut/GetOutByName check it against the type MySQL actually reports
// for the bound session variable, the way a JDBC driver validates
// registerOutParameter's sqlType against the procedure's catalog entry.
type SQLType int

const (
	SQLTypeInteger SQLType = iota
	SQLTypeBigInt
	SQLTypeVarChar
	SQLTypeDecimal
	SQLTypeDouble
	SQLTypeDate
	SQLTypeTimestamp
)

// matches reports whether a column of the given native field type is an
// acceptable binding for this registered SQL type.
func (t SQLType) matches(ft fieldType) bool {
	switch t {
	case SQLTypeInteger:
		return ft == fieldTypeTiny || ft == fieldTypeShort || ft == fieldTypeInt24 || ft == fieldTypeLong
	case SQLTypeBigInt:
		return ft == fieldTypeLongLong
	case SQLTypeVarChar:
		return ft == fieldTypeVarChar || ft == fieldTypeVarString || ft == fieldTypeString
	case SQLTypeDecimal:
		return ft == fieldTypeDecimal || ft == fieldTypeNewDecimal
	case SQLTypeDouble:
		return ft == fieldTypeDouble || ft == fieldTypeFloat
	case SQLTypeDate:
		return ft == fieldTypeDate || ft == fieldTypeNewDate
	case SQLTypeTimestamp:
		return ft == fieldTypeTimestamp || ft == fieldTypeDateTime
	default:
		return false
	}
}

// CallableStatement runs a stored procedure via CALL, surfacing the
// OUT/INOUT parameters a procedure assigns to MySQL user session
// variables (the protocol's only mechanism for returning them, since
// CALL's OUT params don't appear in the binary result set itself).
type CallableStatement struct {
	mc           *Connection
	procedure    string
	placeholders []string // "@_p0", "@_p1", ... bound ahead of CALL

	outTypes     map[int]SQLType // registered via RegisterOutParameter
	outNames     map[string]int  // name -> index, for GetOutByName
	hadOutParams bool            // SERVER_STATUS_PS_OUT_PARAMS on the last CALL
}

// PrepareCall builds a CallableStatement for a stored procedure with
// numInOut parameters, each addressable positionally via SetOut/GetOut.
func (mc *Connection) PrepareCall(procedure string, paramCount int) *CallableStatement {
	names := make([]string, paramCount)
	for i := range names {
		names[i] = fmt.Sprintf("@_cs_p%d", i)
	}
	return &CallableStatement{mc: mc, procedure: procedure, placeholders: names}
}

// RegisterOutParameter declares that the parameter at index is an
// OUT/INOUT parameter of the given SQL type, required before GetOut or
// GetOutByName will return a value for it. name, if given, additionally
// makes the parameter retrievable by GetOutByName.
func (cs *CallableStatement) RegisterOutParameter(index int, sqlType SQLType, name ...string) error {
	if index < 0 || index >= len(cs.placeholders) {
		return ErrParamCount
	}
	if cs.outTypes == nil {
		cs.outTypes = make(map[int]SQLType)
	}
	cs.outTypes[index] = sqlType
	if len(name) > 0 && name[0] != "" {
		if cs.outNames == nil {
			cs.outNames = make(map[string]int)
		}
		cs.outNames[name[0]] = index
	}
	return nil
}

// Execute assigns args to the procedure's session-variable parameters,
// issues CALL, and returns the result set (if any) the procedure's own
// SELECTs produced; use ReadOutParams afterward to retrieve OUT/INOUT
// values.
func (cs *CallableStatement) Execute(ctx context.Context, args ...any) (*ResultSet, error) {
	if len(args) != len(cs.placeholders) {
		return nil, ErrParamCount
	}
	for i, arg := range args {
		lit, err := paramLiteral(arg, cs.mc.cfg.Loc)
		if err != nil {
			return nil, err
		}
		if _, err := cs.mc.Exec(ctx, fmt.Sprintf("SET %s = %s", cs.placeholders[i], lit)); err != nil {
			return nil, err
		}
	}

	call := fmt.Sprintf("CALL %s(%s)", cs.procedure, strings.Join(cs.placeholders, ", "))
	rs, err := cs.mc.Query(ctx, call)
	cs.hadOutParams = cs.mc.status&statusPsOutParams != 0
	return rs, err
}

// GetOut retrieves the current value of the OUT/INOUT parameter at
// index, which must have been declared via RegisterOutParameter with a
// SQL type matching the column MySQL actually returns for it.
func (cs *CallableStatement) GetOut(ctx context.Context, index int) (any, error) {
	if !cs.hadOutParams {
		return nil, ErrNoOutParams
	}
	sqlType, ok := cs.outTypes[index]
	if !ok {
		return nil, ErrNoOutParams
	}
	if index < 0 || index >= len(cs.placeholders) {
		return nil, ErrParamCount
	}
	rs, err := cs.mc.Query(ctx, "SELECT "+cs.placeholders[index])
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	if cols := rs.ColumnTypes(); len(cols) == 1 && !sqlType.matches(cols[0].Type) {
		return nil, ErrOutParamTypeMismatch
	}
	dest := make([]any, 1)
	if err := rs.Next(dest); err != nil {
		return nil, err
	}
	return dest[0], nil
}

// GetOutByName retrieves an OUT/INOUT parameter registered under name
// via RegisterOutParameter's optional name argument.
func (cs *CallableStatement) GetOutByName(ctx context.Context, name string) (any, error) {
	index, ok := cs.outNames[name]
	if !ok {
		return nil, ErrNoOutParams
	}
	return cs.GetOut(ctx, index)
}

// ReadOutParams retrieves the current value of every bound parameter,
// for callers that declared some as OUT/INOUT in the procedure
// signature; callers pass the indices they care about.
func (cs *CallableStatement) ReadOutParams(ctx context.Context, indices ...int) ([]any, error) {
	names := make([]string, len(indices))
	for i, idx := range indices {
		names[i] = cs.placeholders[idx]
	}
	rs, err := cs.mc.Query(ctx, "SELECT "+strings.Join(names, ", "))
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	dest := make([]any, len(names))
	if err := rs.Next(dest); err != nil {
		return nil, err
	}
	return dest, nil
}
