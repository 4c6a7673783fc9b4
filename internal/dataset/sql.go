package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// DefaultTable is the table holding the raw USDA PLANTS export.
const DefaultTable = "usda"

// validTable matches table names (alphanumeric + underscore, must start with letter or underscore).
var validTable = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// quoteIdent quotes a SQL identifier with double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// readSQLTable loads every row of table. quote renders identifiers for the
// target dialect.
func readSQLTable(ctx context.Context, db *sql.DB, table string, quote func(string) string) (*Table, error) {
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("table name %q is not a valid identifier", table)
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quote(table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	return scanTable(rows)
}

// scanTable converts SQL rows to a Table.
func scanTable(rows *sql.Rows) (*Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = strings.TrimSpace(stringify(values[i]))
		}
		t.Records = append(t.Records, rec)
	}

	return t, rows.Err()
}

// writeSQLTable replaces table with the contents of t, all columns as text.
func writeSQLTable(ctx context.Context, db *sql.DB, table string, t *Table, quote func(string) string, placeholder func(int) string) error {
	if !validTable.MatchString(table) {
		return fmt.Errorf("table name %q is not a valid identifier", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}

	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quote(c) + " TEXT"
		marks[i] = placeholder(i + 1)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", quote(table), strings.Join(cols, ",\n  "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = quote(c)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	values := make([]any, len(t.Columns))
	for i, rec := range t.Records {
		for j, c := range t.Columns {
			values[j] = rec[c]
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("inserting record %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
