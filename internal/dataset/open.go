package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how a table is stored.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSONL    Format = "jsonl"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

// DetectFormat infers the format of a source path or DSN.
func DetectFormat(source string) (Format, error) {
	if strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://") {
		return FormatPostgres, nil
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
}

// Open loads a table from source. table names the SQL table for database
// sources and is ignored otherwise; empty means DefaultTable.
func Open(ctx context.Context, source, table string) (*Table, error) {
	format, err := DetectFormat(source)
	if err != nil {
		return nil, err
	}
	if table == "" {
		table = DefaultTable
	}

	switch format {
	case FormatCSV:
		return ReadCSVFile(source)
	case FormatJSONL:
		return ReadJSONLFile(source)
	case FormatSQLite:
		return ReadSQLite(ctx, source, table)
	case FormatPostgres:
		return ReadPostgres(ctx, source, table)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
}

// Save writes t to dest in the format implied by its extension or scheme.
func Save(ctx context.Context, dest, table string, t *Table) error {
	format, err := DetectFormat(dest)
	if err != nil {
		return err
	}
	if table == "" {
		table = DefaultTable
	}

	switch format {
	case FormatCSV:
		return WriteCSVFile(dest, t)
	case FormatJSONL:
		return WriteJSONLFile(dest, t)
	case FormatSQLite:
		return WriteSQLite(ctx, dest, table, t)
	case FormatPostgres:
		return WritePostgres(ctx, dest, table, t)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedSource, dest)
}
