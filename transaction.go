package mysql

import (
	"context"
	"fmt"
)

// IsolationLevel mirrors the four SQL standard isolation levels MySQL
// supports via SET TRANSACTION ISOLATION LEVEL.
type IsolationLevel int

const (
	LevelDefault IsolationLevel = iota
	LevelReadUncommitted
	LevelReadCommitted
	LevelRepeatableRead
	LevelSerializable
)

func (l IsolationLevel) sql() string {
	switch l {
	case LevelReadUncommitted:
		return "READ UNCOMMITTED"
	case LevelReadCommitted:
		return "READ COMMITTED"
	case LevelRepeatableRead:
		return "REPEATABLE READ"
	case LevelSerializable:
		return "SERIALIZABLE"
	default:
		return ""
	}
}

// Transaction is the handle returned by Connection.Begin, mirroring
// transaction/savepoint controller. A Connection allows
// only one open Transaction at a time since MySQL has no nested
// transactions; savepoints are the supported nesting mechanism.
type Transaction struct {
	mc     *Connection
	closed bool
}

// BeginOptions configures a new transaction.
type BeginOptions struct {
	Isolation IsolationLevel
	ReadOnly  bool
}

// Begin starts a transaction, optionally setting its isolation level
// and read-only mode before issuing START TRANSACTION (MySQL requires
// the isolation level to be set in a separate statement immediately
// before START TRANSACTION).
func (mc *Connection) Begin(ctx context.Context, opts BeginOptions) (*Transaction, error) {
	if mc.autocommit {
		// no-op: autocommit is turned off implicitly by START TRANSACTION,
		// and restored on COMMIT/ROLLBACK below.
	}

	if lvl := opts.Isolation.sql(); lvl != "" {
		if _, err := mc.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL "+lvl); err != nil {
			return nil, err
		}
	}

	startSQL := "START TRANSACTION"
	if opts.ReadOnly {
		startSQL += " READ ONLY"
	}
	if _, err := mc.Exec(ctx, startSQL); err != nil {
		return nil, err
	}

	mc.autocommit = false
	mc.readOnly = opts.ReadOnly
	return &Transaction{mc: mc}, nil
}

// Commit ends the transaction successfully.
func (tx *Transaction) Commit(ctx context.Context) error {
	if tx.closed {
		return ErrResultSetClosed
	}
	if tx.mc.autocommit {
		return ErrCommitAutocommit
	}
	tx.closed = true
	_, err := tx.mc.Exec(ctx, "COMMIT")
	tx.mc.autocommit = true
	return err
}

// Rollback discards every change made since Begin.
func (tx *Transaction) Rollback(ctx context.Context) error {
	if tx.closed {
		return ErrResultSetClosed
	}
	if tx.mc.autocommit {
		return ErrRollbackAutocommit
	}
	tx.closed = true
	_, err := tx.mc.Exec(ctx, "ROLLBACK")
	tx.mc.autocommit = true
	return err
}

// Savepoint marks a named point inside the transaction that
// RollbackTo/ReleaseSavepoint can later target (the savepoint
// controller).
func (tx *Transaction) Savepoint(ctx context.Context, name string) error {
	if tx.closed {
		return ErrResultSetClosed
	}
	_, err := tx.mc.Exec(ctx, fmt.Sprintf("SAVEPOINT `%s`", name))
	return err
}

// RollbackTo rolls back to a previously created savepoint without
// ending the transaction.
func (tx *Transaction) RollbackTo(ctx context.Context, name string) error {
	if tx.closed {
		return ErrResultSetClosed
	}
	_, err := tx.mc.Exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT `%s`", name))
	return err
}

// ReleaseSavepoint discards a savepoint without rolling back to it.
func (tx *Transaction) ReleaseSavepoint(ctx context.Context, name string) error {
	if tx.closed {
		return ErrResultSetClosed
	}
	_, err := tx.mc.Exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT `%s`", name))
	return err
}

// SetAutocommit toggles autocommit outside of an explicit transaction.
func (mc *Connection) SetAutocommit(ctx context.Context, on bool) error {
	val := "0"
	if on {
		val = "1"
	}
	if _, err := mc.Exec(ctx, "SET autocommit="+val); err != nil {
		return err
	}
	mc.autocommit = on
	return nil
}

// SetReadOnly enforces or lifts RejectReadOnly-style guarding of DML on
// this connection; when cfg.RejectReadOnly is set, Exec refuses
// INSERT/UPDATE/DELETE/REPLACE while readOnly is true.
func (mc *Connection) SetReadOnly(ctx context.Context, readOnly bool) error {
	stmt := "SET SESSION TRANSACTION READ WRITE"
	if readOnly {
		stmt = "SET SESSION TRANSACTION READ ONLY"
	}
	if _, err := mc.Exec(ctx, stmt); err != nil {
		return err
	}
	mc.readOnly = readOnly
	return nil
}

func (mc *Connection) guardReadOnly(sql string) error {
	if mc.cfg.RejectReadOnly && mc.readOnly && isDMLKeyword(sql) {
		return &InvalidArgumentError{Msg: "connection is read-only: " + sql}
	}
	return nil
}
