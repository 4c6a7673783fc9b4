package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// openPostgres opens and pings a PostgreSQL connection.
func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// ReadPostgres loads table from the PostgreSQL database at dsn.
func ReadPostgres(ctx context.Context, dsn, table string) (*Table, error) {
	db, err := openPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return readSQLTable(ctx, db, table, pq.QuoteIdentifier)
}

// WritePostgres replaces table in the PostgreSQL database at dsn with t.
func WritePostgres(ctx context.Context, dsn, table string, t *Table) error {
	db, err := openPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return writeSQLTable(ctx, db, table, t, pq.QuoteIdentifier, func(n int) string {
		return "$" + strconv.Itoa(n)
	})
}
