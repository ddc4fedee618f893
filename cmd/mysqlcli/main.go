// Command mysqlcli is a minimal interactive REPL over the native
// Connection API, for manual protocol testing against a real server.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/gopherdb/mysql"
)

var (
	sqlLexer  chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
)

func init() {
	sqlLexer = lexers.Get("sql")
	formatter = formatters.Get("terminal256")
	style = styles.Get("monokai")
}

func highlightSQL(s string) string {
	if sqlLexer == nil || s == "" {
		return s
	}
	iterator, err := sqlLexer.Tokenise(nil, s)
	if err != nil {
		return s
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return s
	}
	return strings.TrimRight(buf.String(), "\n")
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func main() {
	var (
		dsn = flag.String("dsn", "root@tcp(127.0.0.1:3306)/", "connection DSN")
	)
	flag.Parse()

	cfg, err := mysql.ParseDSN(*dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("invalid DSN: "+err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := mysql.Connect(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("connect failed: "+err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Println(headerStyle.Render(fmt.Sprintf("connected to MySQL %s (connection id %d)",
		conn.ServerVersion(), conn.ConnectionID())))

	repl(ctx, conn)
}

func repl(ctx context.Context, conn *mysql.Connection) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Print("mysql> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" || line == `\q` {
			break
		}
		fmt.Println(highlightSQL(line))
		runStatement(ctx, conn, line)
	}
}

func runStatement(ctx context.Context, conn *mysql.Connection, sql string) {
	trimmed := strings.ToUpper(strings.TrimSpace(sql))
	if strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "SHOW") ||
		strings.HasPrefix(trimmed, "DESCRIBE") || strings.HasPrefix(trimmed, "EXPLAIN") {
		rs, err := conn.Query(ctx, sql)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return
		}
		defer rs.Close()
		printResultSet(rs)
		return
	}

	res, err := conn.Exec(ctx, sql)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Printf("Query OK, %d rows affected (last insert id %d)\n", res.RowsAffected, res.LastInsertID)
}

func printResultSet(rs *mysql.ResultSet) {
	cols := rs.Columns()
	widths := make([]int, len(cols))
	var rows [][]string

	dest := make([]any, len(cols))
	for {
		if err := rs.Next(dest); err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Println(errorStyle.Render(err.Error()))
			}
			break
		}
		row := make([]string, len(cols))
		for i, v := range dest {
			row[i] = formatValue(v)
		}
		rows = append(rows, row)
	}

	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var out strings.Builder
	writeRow(&out, cols, widths)
	for _, row := range rows {
		writeRow(&out, row, widths)
	}
	fmt.Println(borderStyle.Render(strings.TrimRight(out.String(), "\n")))
	fmt.Printf("%d rows in set\n", len(rows))
}

func writeRow(out *strings.Builder, cells []string, widths []int) {
	for i, c := range cells {
		fmt.Fprintf(out, "%-*s  ", widths[i], c)
	}
	out.WriteByte('\n')
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
