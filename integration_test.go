//go:build integration

package mysql_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/gopherdb/mysql"
)

// startMySQL launches a disposable MySQL container for the driver to
// exercise end to end. Grounded on mickamy-sql-tap/proxy/mysql's
// proxy_test.go startMySQL helper.
func startMySQL(t *testing.T) *mysql.Config {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8",
		tcmysql.WithDatabase("test"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("test"),
	)
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate mysql container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("get port: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	return mysql.NewConfig(
		mysql.WithHost(host),
		mysql.WithPort(portNum),
		mysql.WithUser("root"),
		mysql.WithPassword("test"),
		mysql.WithDatabase("test"),
	)
}

func TestIntegrationQueryAndExec(t *testing.T) {
	cfg := startMySQL(t)
	ctx := context.Background()

	conn, err := mysql.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(ctx, "CREATE TABLE widgets (id INT PRIMARY KEY AUTO_INCREMENT, name VARCHAR(64))"); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}

	res, err := conn.Exec(ctx, "INSERT INTO widgets (name) VALUES (?)", "sprocket")
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if res.RowsAffected != 1 || res.LastInsertID != 1 {
		t.Fatalf("unexpected exec result: %+v", res)
	}

	rs, err := conn.Query(ctx, "SELECT id, name FROM widgets WHERE id = ?", 1)
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	defer rs.Close()

	dest := make([]any, 2)
	if err := rs.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if fmt.Sprint(dest[1]) != "sprocket" && string(dest[1].([]byte)) != "sprocket" {
		t.Errorf("unexpected name column: %#v", dest[1])
	}
}

func TestIntegrationTransaction(t *testing.T) {
	cfg := startMySQL(t)
	ctx := context.Background()

	conn, err := mysql.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(ctx, "CREATE TABLE accounts (id INT PRIMARY KEY, balance INT)"); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	if _, err := conn.Exec(ctx, "INSERT INTO accounts VALUES (1, 100)"); err != nil {
		t.Fatalf("seed INSERT: %v", err)
	}

	tx, err := conn.Begin(ctx, mysql.BeginOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := conn.Exec(ctx, "UPDATE accounts SET balance = balance - 10 WHERE id = 1"); err != nil {
		t.Fatalf("UPDATE: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	rs, err := conn.Query(ctx, "SELECT balance FROM accounts WHERE id = 1")
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	defer rs.Close()
	dest := make([]any, 1)
	if err := rs.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v, ok := dest[0].(int64); !ok || v != 100 {
		t.Errorf("balance after rollback = %#v, want 100", dest[0])
	}
}

func TestIntegrationServerPreparedStatement(t *testing.T) {
	cfg := startMySQL(t).With(mysql.WithUseServerPrepStmts(true))
	ctx := context.Background()

	conn, err := mysql.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(ctx, "CREATE TABLE items (id INT PRIMARY KEY, label VARCHAR(32))"); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}

	stmt, err := conn.Prepare(ctx, "INSERT INTO items VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer stmt.Close()

	if _, err := stmt.Execute(ctx, 1, "gadget"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	qstmt, err := conn.Prepare(ctx, "SELECT label FROM items WHERE id = ?")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer qstmt.Close()

	rs, err := qstmt.ExecuteQuery(ctx, 1)
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	defer rs.Close()

	dest := make([]any, 1)
	if err := rs.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s, ok := dest[0].([]byte); !ok || string(s) != "gadget" {
		t.Errorf("label = %#v, want gadget", dest[0])
	}
}
