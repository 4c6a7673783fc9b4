package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV parses a CSV table whose first row is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Columns: header}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", line, err)
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line, len(row), len(header))
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			} else {
				rec[col] = ""
			}
		}
		t.Records = append(t.Records, rec)
	}

	return t, nil
}

// ReadCSVFile reads a CSV table from path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(t.Columns))
	for i, rec := range t.Records {
		for j, col := range t.Columns {
			row[j] = rec[col]
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the table to path atomically.
func WriteCSVFile(path string, t *Table) error {
	return writeAtomic(path, ".tmp-*.csv", func(w io.Writer) error {
		return WriteCSV(w, t)
	})
}
