package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// openSQLite opens a SQLite database file.
func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	return db, nil
}

// ReadSQLite loads table from the SQLite database at path.
func ReadSQLite(ctx context.Context, path, table string) (*Table, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return readSQLTable(ctx, db, table, quoteIdent)
}

// WriteSQLite replaces table in the SQLite database at path with t.
func WriteSQLite(ctx context.Context, path, table string, t *Table) error {
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return writeSQLTable(ctx, db, table, t, quoteIdent, func(int) string { return "?" })
}
