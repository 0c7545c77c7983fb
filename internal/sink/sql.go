package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SQLSink writes tables into a SQL database. Each Write replaces the rows
// the table covers inside one transaction.
type SQLSink struct {
	db     *sql.DB
	driver string
}

// OpenSQL connects to a sqlite file or a postgres DSN
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLSink, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &SQLSink{db: db, driver: driver}, nil
}

// Close releases the connection pool
func (s *SQLSink) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle
func (s *SQLSink) DB() *sql.DB {
	return s.db
}

// Write creates the table when missing and replaces the rows in the table's
// key scope, or all rows when it has no key
func (s *SQLSink) Write(ctx context.Context, t Table) error {
	integer := integerColumns(t)
	name := quoteIdent(strings.ToLower(t.Name))
	scope, err := t.KeyScope()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", t.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, createStatement(name, t.Columns, integer)); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	del, delArgs := s.deleteStatement(name, t.Key, scope)
	if del != "" {
		if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("clear table %s: %w", t.Name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, s.insertStatement(name, t.Columns))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", t.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(t.Columns))
	for r, row := range t.Rows {
		for i, v := range row {
			if integer[i] {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("table %s row %d column %s: %w", t.Name, r, t.Columns[i], err)
				}
				args[i] = n
				continue
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", t.Name, r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.Name, err)
	}
	return nil
}

// deleteStatement clears the whole table without a key. A key with an
// empty scope deletes nothing.
func (s *SQLSink) deleteStatement(name, key string, scope []string) (string, []any) {
	if key == "" {
		return "DELETE FROM " + name, nil
	}
	if len(scope) == 0 {
		return "", nil
	}
	args := make([]any, len(scope))
	for i, v := range scope {
		args[i] = v
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", name, quoteIdent(key), s.placeholders(len(scope))), args
}

func (s *SQLSink) insertStatement(name string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), s.placeholders(len(columns)))
}

func (s *SQLSink) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if s.driver == DriverPostgres {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

func createStatement(name string, columns []string, integer []bool) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		typ := "TEXT"
		if integer[i] {
			typ = "BIGINT"
		}
		defs[i] = quoteIdent(c) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
}

// integerColumns marks columns where every value is an integer.
// Columns of an empty table are TEXT.
func integerColumns(t Table) []bool {
	out := make([]bool, len(t.Columns))
	if len(t.Rows) == 0 {
		return out
	}
	for i := range t.Columns {
		out[i] = true
		for _, row := range t.Rows {
			if _, err := strconv.ParseInt(row[i], 10, 64); err != nil {
				out[i] = false
				break
			}
		}
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
